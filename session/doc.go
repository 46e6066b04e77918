// Package session defines the persisted credential model and the store contract the
// authentication engine reads and writes through.
//
// # Identity
//
// Session IDs are a deterministic function of the shop and, for online sessions, the user:
// [OfflineID] and [OnlineID]. Two writers producing a credential for the same grant therefore
// address the same key, and the last write wins.
//
// # Stores
//
// [Store] is the collaborator contract. [MemoryStore] is the in-process reference
// implementation used by tests and single-instance apps; [RedisStore] persists sessions in
// Redis with the versioned JSON encoding from [Encode].
//
// # What this package must NOT do
//
//   - Call the platform or refresh credentials; freshness is the engine's job.
//   - Merge a stored session with a new one; Store always overwrites.
//   - Persist a session without an access token.
package session
