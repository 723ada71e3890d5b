// Package debugger provides debugger state machines over the analysis
// engine and the managers that track them.
//
// Every debugger is in one of four states: Uninitialized, Halted, Running
// or Terminated. Continuation is performed by driving jobs submitted to a
// job.Manager with the debugger as owner, so a debugger is running exactly
// while it owns an active job. Halt cancels those jobs.
//
// Debuggers, ListManager, Manager and Watcher belong to the control thread.
// Their methods must only be called from it.
package debugger
