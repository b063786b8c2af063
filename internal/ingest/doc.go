// Package ingest relays delimited vehicle telemetry records into the
// scheduler.
//
// The relay reads one comma-delimited record per line, validates and decodes
// it, and submits one forward-to-sink job per valid record. Malformed lines
// are counted and skipped. The producer side can be rate limited; when the
// scheduler applies backpressure (queue full) the relay retries briefly and
// otherwise drops the record.
//
// After the last line an end-of-stream job is submitted so the sink observes
// a terminator after all records, mirroring a producer/consumer pipeline that
// signals completion in-band.
package ingest
