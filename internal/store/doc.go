// Package store provides the SQLite destination of the ingester.
//
// The store holds one table per record shape (see internal/record) plus
// ingest_runs, a bookkeeping table with one row per stream import.
//
// # Write Pattern
//
// Ingestion writes through a Batch: one transaction per input chunk, one
// single-row INSERT per record, a prepared statement cached per table for
// the lifetime of the transaction. An insert that does not affect exactly
// one row is an error for that record only; the transaction stays usable.
//
// # Duplicates
//
// Data tables have no uniqueness constraints. Importing the same input twice
// stores every row twice; ingest_runs shows both imports.
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: one writer, sequential pipelines
package store
