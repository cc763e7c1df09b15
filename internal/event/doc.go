// Package event provides a synchronous pub-sub bus and the event types
// emitted by the governance components. The bus decouples the subsumption
// controller, workspace, and arbitration protocol from whatever is observing
// them (logging, the watch TUI, tests) without direct dependencies.
//
// Publishing is synchronous: handlers run on the publisher's goroutine in
// registration order, with panics recovered so one misbehaving handler cannot
// block delivery to the rest.
//
// Event type identifiers follow a "category.action" convention, e.g.
// "workspace.broadcast" or "arbitration.escalated". Subscribe to a specific
// type, or to every event with SubscribeAll.
package event
