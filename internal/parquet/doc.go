// Package parquet implements Parquet file reading and writing for payment events.
//
// The package provides:
//   - EventWriter for writing one immutable partition file
//   - EventReader with a forward-only Cursor for streaming reads
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Type conversion between event records and Parquet rows
package parquet
