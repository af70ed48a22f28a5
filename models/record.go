// Package models holds the canonical in-memory types shared across the
// parser, batcher, and storage backends.
package models

import (
	"fmt"
	"time"
)

// LogRecord is the canonical record produced by the parser and consumed by
// storage backends. Fields mirror the teacher's LogEntry shape, generalized
// to carry both the raw datagram and the facility/severity/priority triple
// the storage layer persists.
type LogRecord struct {
	// ID is backend-assigned: an autoincrement row id for SQLite, or the
	// per-partition sequence number for the search backend (whose document
	// uid is the composite "{partition}-{sequence}" string). Left zero until
	// the backend assigns it.
	ID int64

	Facility int
	Severity int
	Priority int

	// Timestamp is the instant parsed from the message body, falling back
	// to ReceivedAt when the message carries no parseable timestamp.
	Timestamp time.Time

	// Hostname is the token following the timestamp in the message, or the
	// sender's IP address when the message carries none.
	Hostname string

	// Tag is the process/program name preceding the first colon in the
	// body. Empty when the body carries no colon-delimited tag.
	Tag string

	Message string

	// ReceivedAt is the server's receive instant, used to compute the
	// record's partition key.
	ReceivedAt time.Time

	// DeviceReportedTime equals Timestamp when the message carried a
	// parseable timestamp, and ReceivedAt otherwise.
	DeviceReportedTime time.Time

	// Raw holds the unmodified datagram payload.
	Raw []byte
}

// PartitionKey identifies a logical (year, month) partition.
type PartitionKey struct {
	Year  int
	Month int
}

// PartitionKeyFor returns the partition a record with the given receive
// instant belongs to. Partitions are keyed in UTC so rollover boundaries do
// not depend on the host's local timezone.
func PartitionKeyFor(t time.Time) PartitionKey {
	u := t.UTC()
	return PartitionKey{Year: u.Year(), Month: int(u.Month())}
}

// String renders the partition key as the stable "YYYYMM" form used in file
// names and index names.
func (k PartitionKey) String() string {
	return fmt.Sprintf("%04d%02d", k.Year, k.Month)
}
