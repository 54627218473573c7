package store

// Record is one availability log row as served by the HTTP API.
type Record struct {
	// Timestamp is the row's timestamp column, as written.
	Timestamp string `json:"timestamp"`

	// APIName identifies the counter that was read.
	APIName string `json:"api_name"`

	// AvailableAgents is the count or the failure sentinel.
	AvailableAgents string `json:"available_agents"`

	// Failed is true when AvailableAgents holds a sentinel.
	Failed bool `json:"failed"`
}

// Store defines the interface for storing and subscribing to records.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Add appends a record and notifies all subscribers.
	Add(rec Record)

	// All returns the retained records, oldest first.
	// The returned slice is a snapshot; modifications do not affect the store.
	All() []Record

	// Latest returns the most recent record and true, or false if empty.
	Latest() (Record, bool)

	// Subscribe returns a channel that receives new records.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Record

	// SubscribeLatest subscribes and reads the latest record atomically,
	// so a record is never both the returned latest and a channel value.
	SubscribeLatest() (<-chan Record, Record, bool)

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Record)
}
