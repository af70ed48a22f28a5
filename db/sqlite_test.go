package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"syslogd/models"
)

func newTestBackend(t *testing.T) (*Backend, models.PartitionKey) {
	t.Helper()
	dir := t.TempDir()
	b := New(filepath.Join(dir, "syslog.sqlite3"))
	key := models.PartitionKeyFor(time.Now())
	t.Cleanup(func() { b.Close() })
	return b, key
}

func makeRecords(n int, receivedAt time.Time) []*models.LogRecord {
	recs := make([]*models.LogRecord, n)
	for i := range recs {
		recs[i] = &models.LogRecord{
			Facility:           4,
			Severity:           2,
			Priority:           34,
			Hostname:           "host",
			Tag:                "myapp",
			Message:            "msg-" + strconv.Itoa(i),
			ReceivedAt:         receivedAt,
			DeviceReportedTime: receivedAt,
		}
	}
	return recs
}

func TestWriteBatch_RowCountAndIDs(t *testing.T) {
	b, key := newTestBackend(t)
	ctx := context.Background()

	if err := b.EnsurePartition(ctx, key); err != nil {
		t.Fatalf("ensure partition: %v", err)
	}

	now := time.Now()
	records := makeRecords(1000, now)
	n, err := b.WriteBatch(ctx, key, records)
	if err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if n != 1000 {
		t.Fatalf("expected 1000 written, got %d", n)
	}

	var count int
	if err := b.active.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName(key)).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1000 {
		t.Fatalf("expected 1000 rows, got %d", count)
	}

	for i, r := range records {
		if r.ID != int64(i+1) {
			t.Fatalf("record %d: expected id %d, got %d", i, i+1, r.ID)
		}
	}
}

func TestWriteBatch_FTSMatchesExactlyOneRow(t *testing.T) {
	b, key := newTestBackend(t)
	ctx := context.Background()

	if err := b.EnsurePartition(ctx, key); err != nil {
		t.Fatalf("ensure partition: %v", err)
	}

	records := makeRecords(50, time.Now())
	if _, err := b.WriteBatch(ctx, key, records); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	rows, err := b.active.QueryContext(ctx,
		"SELECT Message FROM "+ftsTableName(key)+" WHERE "+ftsTableName(key)+" MATCH '\"msg-25\"'")
	if err != nil {
		t.Fatalf("fts query: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, msg)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one FTS match, got %d: %v", len(got), got)
	}
	if got[0] != "msg-25" {
		t.Fatalf("expected message %q, got %q", "msg-25", got[0])
	}
}

func TestEnsurePartition_Idempotent(t *testing.T) {
	b, key := newTestBackend(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.EnsurePartition(ctx, key); err != nil {
			t.Fatalf("ensure partition attempt %d: %v", i, err)
		}
	}
}

func TestRollover_ClosesAndReopensAcrossPartitions(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	m1 := models.PartitionKey{Year: 2026, Month: 1}
	m2 := models.PartitionKey{Year: 2026, Month: 2}

	if err := b.EnsurePartition(ctx, m1); err != nil {
		t.Fatalf("ensure m1: %v", err)
	}
	if _, err := b.WriteBatch(ctx, m1, makeRecords(1, time.Now())); err != nil {
		t.Fatalf("write m1: %v", err)
	}

	if err := b.EnsurePartition(ctx, m2); err != nil {
		t.Fatalf("ensure m2: %v", err)
	}
	if _, err := b.WriteBatch(ctx, m2, makeRecords(1, time.Now())); err != nil {
		t.Fatalf("write m2: %v", err)
	}

	if b.activeKey != m2 {
		t.Fatalf("expected active partition to be m2, got %v", b.activeKey)
	}

	// After rollover, m1's partition file still contains exactly its own one row.
	conn1, err := sql.Open("sqlite3", b.partitionPath(m1))
	if err != nil {
		t.Fatalf("reopen m1: %v", err)
	}
	defer conn1.Close()

	var count int
	if err := conn1.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName(m1)).Scan(&count); err != nil {
		t.Fatalf("count m1: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row in m1, got %d", count)
	}
}
