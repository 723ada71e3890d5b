// Package breakpoint manages address breakpoints.
//
// Breakpoints are held in an observable list so views and debuggers can
// react to additions, removals and edits. Driving jobs never read the list
// directly; they take an ExecuteAddrs snapshot when submitted.
//
// The Manager belongs to the control thread and is not safe for concurrent
// use.
package breakpoint
