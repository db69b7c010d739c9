// Package warc reads WARC containers record by record
//
// Design choices:
// - Gzipped containers are read one member at a time so every record keeps the
//   compressed offset it starts at; plain containers report uncompressed offsets.
// - The record block is exposed as a bounded reader and never buffered here;
//   callers decide what to materialize after checking Content-Length.
// - Skipping a record drains its block, which is what moves the stream on.
package warc
