// Package observable provides value and collection containers that notify
// registered observers when they change.
//
// Every piece of shared, observed state in tracewright is held in one of
// these containers: the loaded image, the simulation manager, the job queue,
// the debugger list and the breakpoint list.
//
// # Delivery
//
// Observers are invoked synchronously, in subscription order, on the
// goroutine that called Set, Notify or a collection mutator. The containers
// perform no locking. All mutation and notification must happen on the
// control thread; worker goroutines hand results over through
// dispatch.Loop.Schedule instead of touching containers directly.
//
// # Observers
//
// An observer is any comparable value implementing Observer. Plain functions
// are wrapped with ObserverFunc, which returns a pointer so the same
// subscription can later be removed:
//
//	obs := observable.ObserverFunc(func(ev observable.Event[int]) {
//	    fmt.Println("now", ev.Value)
//	})
//	c := observable.New(1)
//	c.Subscribe(obs)
//	c.Set(2)         // prints "now 2"
//	c.Set(2)         // no change, no notification
//	c.Notify()       // forced, prints "now 2"
//	c.Unsubscribe(obs)
package observable
