// Package memory is the service facade over the dual note store: a durable
// SQLite record store and a sqlite-vec similarity index that mirrors it.
//
// Every operation is scoped to a caller-supplied user id. Writes go to the
// record store first and the index immediately after; an index failure
// during add rolls the record back so the index is never ahead of the
// record. A consistency sweep detects and optionally repairs drift between
// the two stores.
package memory
