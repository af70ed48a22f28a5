// Package storage defines the abstract storage backend contract shared by
// the SQLite and search-engine implementations, plus the partition-key
// grouping logic the batcher uses before handing a batch to a backend.
package storage

import (
	"context"

	"syslogd/models"
)

// Backend is the abstract sink a batch of records is flushed to. Both the
// SQLite and search-engine backends implement this contract; spec.md §4.3.
type Backend interface {
	// EnsurePartition is idempotent: it creates the schema/index for the
	// given partition on first call, and is a no-op thereafter.
	EnsurePartition(ctx context.Context, key models.PartitionKey) error

	// WriteBatch writes records into the given partition and returns the
	// number of records written. Atomic from the caller's perspective per
	// backend-specific semantics documented on each implementation.
	WriteBatch(ctx context.Context, key models.PartitionKey, records []*models.LogRecord) (int, error)

	// Close flushes in-flight state and releases resources. Idempotent.
	Close() error
}

// GroupByPartition splits records into contiguous runs already grouped by
// partition key, in submission order, implementing spec.md §4.3's
// rollover/splitting rule: a batch spanning a month boundary is split into
// one sub-batch per partition rather than dropped or mis-routed.
func GroupByPartition(records []*models.LogRecord) []PartitionGroup {
	var groups []PartitionGroup
	for _, r := range records {
		key := models.PartitionKeyFor(r.ReceivedAt)
		if n := len(groups); n > 0 && groups[n-1].Key == key {
			groups[n-1].Records = append(groups[n-1].Records, r)
			continue
		}
		groups = append(groups, PartitionGroup{Key: key, Records: []*models.LogRecord{r}})
	}
	return groups
}

// PartitionGroup is a contiguous run of records belonging to one partition.
type PartitionGroup struct {
	Key     models.PartitionKey
	Records []*models.LogRecord
}
