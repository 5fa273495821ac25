// Package services implements the driving port interfaces.
// Services contain the core retrieval logic and orchestrate
// calls to driven ports (adapters).
//
// The index store is always passed in. Nothing in this package holds
// process-wide state.
package services
