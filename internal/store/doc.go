// Package store provides in-memory storage and pub/sub for availability
// records shown on the dashboard.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Record]: Storage representation of one log row
//
// The store is designed for concurrent access. Subscribers receive updates
// via channels with non-blocking sends (slow subscribers miss updates rather
// than block the system).
//
// The CSV file remains the system of record; the store only mirrors it for
// serving.
package store
