// Package viz draws a running cluster in the terminal.
//
// [Model] is a Bubble Tea program that steps a simulator on every tick and
// renders the icons as oriented wireframe tiles on a braille [Canvas],
// projected through a rotatable [Camera]. Mouse motion is unprojected
// onto the simulation plane and sampled into the simulator's pointer, so
// moving the mouse pushes the cluster the way a cursor pushes the scene.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Remount with the tuned configuration
//	M     - Toggle frame/scaled integration
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
