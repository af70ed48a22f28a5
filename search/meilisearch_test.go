package search

import (
	"testing"

	"syslogd/models"
)

func TestIndexName(t *testing.T) {
	b := &Backend{prefix: "syslog"}
	key := models.PartitionKey{Year: 2026, Month: 3}
	got := b.indexName(key)
	want := "syslog_202603"
	if got != want {
		t.Errorf("indexName: got %q, want %q", got, want)
	}
}
