// Package shelfd embeds the shelfd catalog server: an HTTP service that
// demonstrates a concurrency-safe two-step write path (resolve-or-create
// author, then append book) over a pluggable key-addressable storage
// backend, with an integrity audit endpoint that proves no orphaned
// references exist under concurrent load.
package shelfd
