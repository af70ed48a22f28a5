package formats

import (
	"net"
	"time"

	"syslogd/errs"
	"syslogd/models"
)

// Parse implements spec.md §4.1's top-level algorithm: detect the wire
// format, bridge newer-format messages into the older shape, and return one
// LogRecord. raw must be the unmodified datagram payload.
func Parse(raw []byte, sender net.Addr, receivedAt time.Time) (*models.LogRecord, error) {
	if len(raw) == 0 {
		return nil, errs.NewParseError("empty datagram")
	}
	if IsNewerFormat(raw) {
		return ParseNewer(raw, sender, receivedAt)
	}
	return ParseOlder(raw, sender, receivedAt)
}
