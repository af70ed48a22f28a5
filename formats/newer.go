package formats

import (
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/leodido/go-syslog/v4/rfc5424"

	"syslogd/errs"
	"syslogd/models"
)

// newerHeaderRegex recognizes "<PRI>1 " — a PRI, a literal version marker
// "1", and a space — the newer format's distinguishing prefix per
// spec.md §4.1 step 1. Only version 1 is standardized, so the marker is
// matched literally rather than as a generic digit run.
var newerHeaderRegex = regexp.MustCompile(`^<\d{1,3}>1 `)

// IsNewerFormat reports whether raw begins with the newer format's PRI +
// version marker prefix.
func IsNewerFormat(raw []byte) bool {
	return newerHeaderRegex.Match(raw)
}

var newerParser = rfc5424.NewParser(rfc5424.WithBestEffort())

// ParseNewer parses a newer-format (RFC5424-style) datagram by first
// decoding it with the RFC5424 parser, then bridging the result into an
// older-format header line and re-parsing that line with ParseOlder. This
// is the literal implementation of spec.md §4.1 step 2's bridge: downstream
// code only ever sees older-format records.
func ParseNewer(raw []byte, sender net.Addr, receivedAt time.Time) (*models.LogRecord, error) {
	parsed, err := newerParser.Parse(raw)
	if err != nil {
		return nil, errs.NewParseError("rfc5424: " + err.Error())
	}
	msg, ok := parsed.(*rfc5424.SyslogMessage)
	if !ok || msg.Priority == nil {
		return nil, errs.NewParseError("rfc5424: missing priority")
	}

	bridged := bridgeLine(msg, receivedAt)
	rec, err := ParseOlder([]byte(bridged), sender, receivedAt)
	if err != nil {
		return nil, err
	}
	// The bridge discards structured data and msgid per spec.md §4.1 step
	// 2; Raw must still reflect the original newer-format datagram, not
	// the synthesized bridge line.
	rec.Raw = append([]byte(nil), raw...)
	return rec, nil
}

// bridgeLine renders msg as an older-format header line:
// "<PRI>TIMESTAMP HOSTNAME TAG: MSG". Structured data and msgid are
// dropped; the unmodified message text becomes MSG.
func bridgeLine(msg *rfc5424.SyslogMessage, receivedAt time.Time) string {
	pri := int(*msg.Priority)

	ts := receivedAt
	if msg.Timestamp != nil {
		ts = *msg.Timestamp
	}

	hostname := "-"
	if msg.Hostname != nil && *msg.Hostname != "" {
		hostname = *msg.Hostname
	}

	tag := "-"
	if msg.Appname != nil && *msg.Appname != "" {
		tag = *msg.Appname
	}

	body := ""
	if msg.Message != nil {
		body = *msg.Message
	}

	return fmt.Sprintf("<%d>%s %s %s: %s", pri, olderTimestampString(ts), hostname, tag, body)
}
