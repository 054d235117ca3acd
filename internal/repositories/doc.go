// Package repositories implements the job table and its persistence.
//
// [JobStore] is the authoritative in-memory table. It locks per job: the map
// lock only guards membership, and every entry carries its own mutex so
// concurrent updates of unrelated jobs never contend.
//
// A [Journal] makes the table durable. Implementations:
//   - [SQLiteJournal] : jobs table in SQLite, schema from the embedded migrations
//   - [PebbleJournal] : JSON values under job/<id> keys in a Pebble store
//   - [RedisJournal] : JSON values under job:<id> keys with an expiry
//
// On startup the journal is loaded back with [JobStore.Restore].
package repositories
