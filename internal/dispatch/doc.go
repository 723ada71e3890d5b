// Package dispatch marshals work from worker goroutines onto the single
// control thread.
//
// A Loop owns an unbounded FIFO of callbacks. Any goroutine may Schedule a
// callback; the goroutine that runs the loop (Run, RunPending or RunUntil)
// is the control thread and executes callbacks one at a time in submission
// order. Callbacks therefore never run concurrently with each other or with
// other control-thread logic that is itself driven from the loop.
//
// # Usage
//
//	loop := dispatch.NewLoop(dispatch.WithLogger(log))
//	go func() {
//	    result := compute()
//	    loop.Schedule(func() { model.Set(result) })
//	}()
//	_ = loop.Run(ctx)
//
// Callbacks are executed through an Executor, which recovers panics so that
// a misbehaving callback is reported and the loop keeps running.
package dispatch
