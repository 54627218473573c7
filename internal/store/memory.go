package store

import (
	"sync"
)

// DefaultCapacity is the number of records a [MemoryStore] retains when
// created with a non-positive capacity.
const DefaultCapacity = 10_000

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore retains the most recent records up to its capacity; older
// records are discarded from memory (they remain in the CSV file).
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu          sync.RWMutex
	records     []Record
	capacity    int
	subscribers map[chan Record]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] retaining up to capacity
// records.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity:    capacity,
		subscribers: make(map[chan Record]struct{}),
	}
}

// Add appends a [Record] and notifies all subscribers.
func (m *MemoryStore) Add(rec Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	if over := len(m.records) - m.capacity; over > 0 {
		// copy down so the backing array does not grow without bound
		m.records = append(m.records[:0], m.records[over:]...)
	}

	// notify before releasing mu so SubscribeLatest sees each record in
	// exactly one of its snapshot or its channel
	m.notifySubscribers(rec)
	m.mu.Unlock()
}

// All returns a snapshot of the retained records, oldest first.
func (m *MemoryStore) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Latest returns the most recently added record.
func (m *MemoryStore) Latest() (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return Record{}, false
	}
	return m.records[len(m.records)-1], true
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Record {
	ch := make(chan Record, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// SubscribeLatest subscribes and returns the most recent record in one
// step. A record added concurrently is either the returned latest or the
// first value on the channel, never both.
func (m *MemoryStore) SubscribeLatest() (<-chan Record, Record, bool) {
	ch := make(chan Record, 100)

	m.mu.RLock()
	defer m.mu.RUnlock()

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	if len(m.records) == 0 {
		return ch, Record{}, false
	}
	return ch, m.records[len(m.records)-1], true
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Record) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the record to all active subscribers without
// blocking.
func (m *MemoryStore) notifySubscribers(rec Record) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- rec:
		default:
			// subscriber is slow, drop the message
		}
	}
}
