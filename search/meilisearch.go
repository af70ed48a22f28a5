// Package search implements the search-engine storage backend: one
// Meilisearch index per (year, month) partition, with index settings
// applied on first use and a backend-assigned composite primary key.
// Grounded in original_source's use of Meilisearch as its search
// collaborator (tests/test_meilisearch.py) and Yupoer-logpulse's
// es_log_repository.go bulk-upload shape, adapted to the Meilisearch
// documents API via github.com/meilisearch/meilisearch-go.
package search

import (
	"context"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"syslogd/models"
)

const primaryKeyAttribute = "uid"

// document is the shape uploaded to Meilisearch. Field names are the
// lower-cased attribute names configured as searchable/filterable/sortable
// in EnsurePartition.
type document struct {
	UID                string `json:"uid"`
	Facility           int    `json:"facility"`
	Severity           int    `json:"severity"`
	Priority           int    `json:"priority"`
	Host               string `json:"host"`
	Tag                string `json:"tag"`
	Message            string `json:"message"`
	ReceivedAt         int64  `json:"received_at"`
	DeviceReportedTime int64  `json:"device_reported_time"`
}

// Backend implements storage.Backend over a Meilisearch client, one index
// per partition.
type Backend struct {
	client meilisearch.ServiceManager
	prefix string

	sequences map[models.PartitionKey]int64
	ensured   map[models.PartitionKey]bool
}

// New builds a search-engine backend against the given Meilisearch
// endpoint. prefix is the index name prefix (spec.md §6's index name
// pattern "<prefix>_YYYYMM").
func New(url, apiKey, prefix string) *Backend {
	return &Backend{
		client:    meilisearch.New(url, meilisearch.WithAPIKey(apiKey)),
		prefix:    prefix,
		sequences: make(map[models.PartitionKey]int64),
		ensured:   make(map[models.PartitionKey]bool),
	}
}

func (b *Backend) indexName(key models.PartitionKey) string {
	return fmt.Sprintf("%s_%s", b.prefix, key.String())
}

// EnsurePartition creates the partition's index if missing and applies the
// settings spec.md §4.3.2 requires: searchable attributes (message, tag,
// host), filterable attributes (facility, severity, host,
// device_reported_time), sortable attributes (device_reported_time,
// received_at, uid), and the composite primary key attribute. The sequence
// counter is initialized from the index's current document count (see
// currentMaxSequence).
func (b *Backend) EnsurePartition(ctx context.Context, key models.PartitionKey) error {
	if b.ensured[key] {
		return nil
	}

	name := b.indexName(key)
	index := b.client.Index(name)

	if _, err := index.FetchInfo(); err != nil {
		task, err := b.client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        name,
			PrimaryKey: primaryKeyAttribute,
		})
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if _, err := b.client.WaitForTask(task.TaskUID, 0); err != nil {
			return fmt.Errorf("wait for index creation %s: %w", name, err)
		}
	}

	searchable := []string{"message", "tag", "host"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes: %w", err)
	}

	filterable := []string{"facility", "severity", "host", "device_reported_time"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}

	sortable := []string{"device_reported_time", "received_at", "uid"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		return fmt.Errorf("update sortable attributes: %w", err)
	}

	seq, err := b.currentMaxSequence(index)
	if err != nil {
		return fmt.Errorf("query current max sequence for %s: %w", name, err)
	}
	b.sequences[key] = seq
	b.ensured[key] = true
	return nil
}

// currentMaxSequence returns the index's current document count, which a
// restarted daemon continues numbering from. The uids are not inspected:
// the count equals the highest assigned sequence only while no document
// has been removed from the index; otherwise new uids can collide with
// existing ones.
func (b *Backend) currentMaxSequence(index meilisearch.IndexManager) (int64, error) {
	stats, err := index.GetStats()
	if err != nil {
		// A brand-new index has no stats yet; start from zero.
		return 0, nil
	}
	return int64(stats.NumberOfDocuments), nil
}

// WriteBatch uploads records as documents in a single AddDocuments call.
// The task acknowledgement from Meilisearch is treated as "accepted," per
// spec.md §4.3.2; the server is trusted to make documents durable
// asynchronously, so WriteBatch does not wait for task completion.
func (b *Backend) WriteBatch(ctx context.Context, key models.PartitionKey, records []*models.LogRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]document, len(records))
	for i, r := range records {
		b.sequences[key]++
		seq := b.sequences[key]
		uid := fmt.Sprintf("%s-%d", key.String(), seq)
		docs[i] = document{
			UID:                uid,
			Facility:           r.Facility,
			Severity:           r.Severity,
			Priority:           r.Priority,
			Host:               r.Hostname,
			Tag:                r.Tag,
			Message:            r.Message,
			ReceivedAt:         r.ReceivedAt.UnixNano(),
			DeviceReportedTime: r.DeviceReportedTime.UnixNano(),
		}
		r.ID = seq
	}

	index := b.client.Index(b.indexName(key))
	if _, err := index.AddDocuments(docs, primaryKeyAttribute); err != nil {
		return 0, fmt.Errorf("add documents to %s: %w", b.indexName(key), err)
	}
	return len(docs), nil
}

// Close is a no-op: the Meilisearch HTTP client holds no long-lived
// connection to release. Present to satisfy storage.Backend and kept
// idempotent.
func (b *Backend) Close() error {
	return nil
}
