// Package store defines the [TokenStore] interface that holds bearer token
// records for the token cache, and provides three implementations:
//
//   - [MemoryStore]: process-local records, the default.
//   - [SQLiteStore]: records persisted in a SQLite database, so a restarted
//     process can reuse a token that has not expired yet.
//   - [TieredStore]: a MemoryStore in front of any persistent store.
//
// A Redis-backed store lives in the store/redis subpackage.
package store
