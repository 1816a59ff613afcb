// Package cluster simulates the spring-damped icon cluster.
//
// A cluster is a fixed set of N items. Each item floats around a resting
// slot, is pulled back to it by a spring, is kicked by fast pointer motion
// nearby and is kept apart from its neighbours by a soft collision term:
//
//   - [Initialize]: create N items with randomized rest slots
//   - [State.Step]: advance every item by one frame
//   - [State.Snapshot]: publish per-item transforms for a renderer
//   - [Pointer]: buffer asynchronous pointer samples between frames
//
// # Example
//
//	st, err := cluster.Initialize(18, cluster.DefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	ptr := cluster.NewPointer(mgl64.Vec2{})
//	for frame := 1; ; frame++ {
//	    st.Step(dt, float64(frame)*dt, ptr.Latch())
//	    out = st.Snapshot(out)
//	}
//
// # Thread Safety
//
// State has a single owner: the frame loop. Step and Snapshot must not be
// called concurrently. Pointer is the only type meant to be shared with
// input goroutines.
package cluster
