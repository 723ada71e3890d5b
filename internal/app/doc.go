// Package app wires a tracewright session together.
//
// A Session owns one dispatch loop, one job manager and one set of debugger
// managers. Everything that observes or mutates session state runs on the
// goroutine that created the session, which is bound as the loop's control
// thread.
package app
