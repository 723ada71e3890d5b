// Package job runs cancellable, progress-reporting work off the control
// thread.
//
// A Job wraps an entry point that receives a *Context. The Manager keeps an
// ordered queue of jobs (insertion order is priority) and runs admitted jobs
// on worker goroutines. All job state transitions, progress updates and
// completion callbacks are applied on the control thread through a
// dispatch.Loop, so observers of Manager.Jobs and of individual jobs never
// see concurrent mutation.
//
// # Admission
//
// At most Workers jobs run at once (default 1, strict FIFO). A blocking job
// starts only when nothing else is running, and nothing starts while it
// runs. Admission never skips ahead: a queued job that cannot start holds
// back every job behind it.
//
// # Cancellation
//
// Cancellation is cooperative. Cancelling a queued job finishes it as
// Cancelled without running it. Cancelling a running job moves it to
// Cancelling and signals its Context; the job ends as Cancelled only once
// its entry point returns. A body that never polls CancelRequested runs to
// completion.
//
// # Failures
//
// An error or panic from the entry point is captured as a *Failure, the job
// ends as Failed, its completion callbacks still run, and the queue keeps
// going.
package job
