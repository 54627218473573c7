// Package csvlog stores availability records in an append-only CSV file.
//
// The file has the fixed header
//
//	Timestamp,APIName,AvailableAgents
//
// which is written exactly once, by whichever writer creates the file. Every
// later write appends a single row and never rewrites existing content.
//
// The main components are:
//
//   - [Writer]: appends rows, creating the file and header on first use
//   - [ReadAll] and [ReadFrom]: parse rows back from the file
//   - [Follower]: watches the file and emits rows as they are appended
package csvlog
