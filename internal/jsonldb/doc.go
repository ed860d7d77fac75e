// Package jsonldb provides a generic, file-backed table stored as a single
// JSON array.
//
// # Overview
//
// [Table] keeps no rows in memory between calls: every [Table.Load] reads the
// whole file and every [Table.Modify] rewrites it. This keeps the file the only
// source of truth, so it can be edited by hand while the server is stopped.
//
// # Concurrency
//
// [Table.Modify] holds the write lock for the entire load-modify-save
// sequence, so two concurrent writers within the process cannot lose each
// other's updates. Readers take the read lock. There is no cross-process
// locking.
//
// # File Format
//
// A pretty-printed JSON array (two-space indent) terminated by a newline.
// Saves go through a temporary file renamed over the target, so a failed save
// leaves the previous content in place.
//
// # Schema
//
// [Columns] and [Schema] describe a row type through JSON Schema reflection.
package jsonldb
