// Package overlay dims displays with a set of full-screen, click-through,
// always-on-top surfaces, one per display.
//
// Each surface is owned by a worker goroutine locked to its OS thread, so a
// stuck surface cannot stall the others. The Coordinator keeps the workers
// in a registry keyed by display id and moves the whole set between the
// Stopped, Starting, Running and Stopping states under a single lock. All
// surfaces always share one opacity value.
//
// Opacity fades go through the overlay lane of a transition.Engine, so a
// manual UpdateOpacity supersedes a running fade the same way a new fade
// does.
package overlay
