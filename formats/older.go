// Package formats detects and parses both syslog wire formats and bridges
// the newer form into the older one so the rest of the daemon handles a
// single shape. Grounded in the teacher's formats/rfc3164.go regex parser
// and formats/rfc5424.go PRI helpers.
package formats

import (
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"syslogd/errs"
	"syslogd/models"
)

// olderRegex matches the terse <PRI>Mmm dd HH:MM:SS HOST TAG: MSG header.
// The day may be space-padded to two digits (RFC3164 "Mmm _d" form).
var olderRegex = regexp.MustCompile(
	`^<(?P<pri>\d{1,3})>(?P<ts>[A-Za-z]{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(?P<rest>.*)$`,
)

// priRegex matches a bare PRI header with no timestamp, used to validate
// malformed-PRI detection independent of the rest of the line.
var priRegex = regexp.MustCompile(`^<(\d{1,3})>`)

const olderTimeLayout = "Jan _2 15:04:05"

// ParseOlder parses an older-format (RFC3164-style) datagram into a
// LogRecord. raw is the unmodified datagram payload; sender is the UDP
// sender address used as the hostname fallback; receivedAt is the server
// receive instant.
func ParseOlder(raw []byte, sender net.Addr, receivedAt time.Time) (*models.LogRecord, error) {
	text := strings.TrimRight(string(raw), "\r\n")
	if text == "" {
		return nil, errs.NewParseError("empty payload")
	}

	priMatch := priRegex.FindStringSubmatch(text)
	if priMatch == nil {
		return nil, errs.NewParseError("missing or malformed PRI")
	}
	pri, err := strconv.Atoi(priMatch[1])
	if err != nil || pri < 0 || pri > 191 {
		return nil, errs.NewParseError("PRI out of range")
	}

	rec := &models.LogRecord{
		Priority:   pri,
		Facility:   pri / 8,
		Severity:   pri % 8,
		ReceivedAt: receivedAt,
		Raw:        append([]byte(nil), raw...),
	}

	m := olderRegex.FindStringSubmatch(text)
	if m == nil {
		// No parseable timestamp/header: fall back to receive time and
		// treat everything after the PRI as tag+message.
		rec.Timestamp = receivedAt
		rec.DeviceReportedTime = receivedAt
		rec.Hostname = senderHost(sender)
		rest := text[len(priMatch[0]):]
		rec.Tag, rec.Message = splitTagMessage(rest)
		return rec, nil
	}

	groups := namedGroups(olderRegex, m)

	ts, ok := parseOlderTimestamp(groups["ts"], receivedAt)
	if ok {
		rec.Timestamp = ts
		rec.DeviceReportedTime = ts
	} else {
		rec.Timestamp = receivedAt
		rec.DeviceReportedTime = receivedAt
	}

	rest := groups["rest"]
	host, remainder := splitHostname(rest)
	if host == "" {
		host = senderHost(sender)
	}
	rec.Hostname = host
	rec.Tag, rec.Message = splitTagMessage(remainder)

	return rec, nil
}

// parseOlderTimestamp parses the space-padded "Mmm dd HH:MM:SS" form and
// infers the year relative to receivedAt, per spec.md §4.1's numerics rule:
// if the parsed month is more than six months ahead of the reference
// month, assume the previous year.
func parseOlderTimestamp(s string, receivedAt time.Time) (time.Time, bool) {
	s = collapseSpaces(s)
	t, err := time.ParseInLocation(olderTimeLayout, s, receivedAt.UTC().Location())
	if err != nil {
		return time.Time{}, false
	}

	year := receivedAt.UTC().Year()
	if int(t.Month())-int(receivedAt.UTC().Month()) > 6 {
		year--
	}
	return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
}

// collapseSpaces normalizes "Jan  1" (two spaces before a single digit day)
// to the single space time.ParseInLocation with "_2" already tolerates, but
// guards against additional internal whitespace variance from regex
// capture.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// splitHostname takes the remainder after the timestamp and returns the
// first whitespace-delimited token as the hostname, plus everything after
// it (tag+message).
func splitHostname(rest string) (hostname, remainder string) {
	rest = strings.TrimLeft(rest, " ")
	idx := strings.IndexByte(rest, ' ')
	if idx < 0 {
		return rest, ""
	}
	return rest[:idx], rest[idx+1:]
}

// splitTagMessage implements spec.md §4.1 step 6: the tag is everything up
// to the first colon that follows a non-space; the rest, left-trimmed, is
// the message. No colon present means an empty tag and the entire
// remainder as the message.
func splitTagMessage(s string) (tag, message string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' && i > 0 && s[i-1] != ' ' {
			tag = s[:i]
			message = strings.TrimLeft(s[i+1:], " ")
			return tag, message
		}
	}
	return "", strings.TrimLeft(s, " ")
}

func senderHost(sender net.Addr) string {
	if sender == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(sender.String())
	if err != nil {
		return sender.String()
	}
	return host
}

func namedGroups(re *regexp.Regexp, m []string) map[string]string {
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if i != 0 && name != "" {
			groups[name] = m[i]
		}
	}
	return groups
}

// olderTimestampString renders t in the older format's textual form,
// "Mmm dd HH:MM:SS" with the day space-padded, for use by the newer→older
// bridge (spec.md §4.1 step 2).
func olderTimestampString(t time.Time) string {
	return t.UTC().Format("Jan _2 15:04:05")
}
