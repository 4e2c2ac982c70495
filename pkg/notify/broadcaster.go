package notify

// Broadcaster delivers a domain mutation event to every connection currently
// joined to the given workspace's room. Delivery is best-effort and
// fire-and-forget; callers never observe a failure.
//
// Handlers receive a Broadcaster at construction time so that nothing outside
// the websocket package touches room state directly.
type Broadcaster interface {
	Broadcast(workspaceID int, event string, payload interface{})
}

// NopBroadcaster discards all events. Used in tests and before the hub is wired.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(workspaceID int, event string, payload interface{}) {}
