// Package app is the brightness service: it owns the transition engine, the
// brightness controller, the overlay coordinator and the schedule monitor,
// and routes every user or schedule action through Update.
//
// A Service is constructed explicitly and passed to whoever needs it; it has
// an Initialize/Shutdown lifecycle and no package-level state.
package app
