// Package analysis post-processes recorded cluster runs.
//
// The package includes tools for characterizing a run:
//
//   - [DominantFrequency]: strongest oscillation in a sampled series
//   - [SettlingFrame]: first frame after which a series stays in tolerance
//   - [PairSeparation]: distance between two items over a run
//   - [Divergence]: growth rate of a small perturbation between two clusters
//   - [NewPhasePortrait]: position against velocity for one item axis
//
// # Idle Check
//
// An undisturbed item bobs at IdleFrequency/2π Hz:
//
//	track := result.Track(0)
//	hz := analysis.DominantFrequency(analysis.Axis(track, 1), 1/fps)
package analysis
