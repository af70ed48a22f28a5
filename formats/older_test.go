package formats

import (
	"net"
	"testing"
	"time"
)

func mustSender() net.Addr {
	return &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 12345}
}

func TestParseOlder_Basic(t *testing.T) {
	line := "<34>Oct 11 22:14:15 mymachine su: 'su root' failed for lonvick on /dev/pts/8"
	rec, err := ParseOlder([]byte(line), mustSender(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Facility != 4 || rec.Severity != 2 {
		t.Errorf("facility/severity mismatch: got (%d,%d)", rec.Facility, rec.Severity)
	}
	if rec.Priority != 34 {
		t.Errorf("priority: got %d", rec.Priority)
	}
	if rec.Hostname != "mymachine" {
		t.Errorf("hostname: got %q", rec.Hostname)
	}
	if rec.Tag != "su" {
		t.Errorf("tag: got %q", rec.Tag)
	}
	if rec.Message != "'su root' failed for lonvick on /dev/pts/8" {
		t.Errorf("message: got %q", rec.Message)
	}
	if rec.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestParseOlder_NoColonNoTag(t *testing.T) {
	line := "<13>Jan  1 00:00:00 host just a plain message with no tag"
	rec, err := ParseOlder([]byte(line), mustSender(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Tag != "" {
		t.Errorf("expected empty tag, got %q", rec.Tag)
	}
	if rec.Message != "just a plain message with no tag" {
		t.Errorf("message: got %q", rec.Message)
	}
}

func TestParseOlder_MissingHostnameFallsBackToSender(t *testing.T) {
	// No recognizable timestamp header at all: falls back to receive time
	// and the sender's IP for hostname.
	line := "<13>not a timestamp at all: still a message"
	now := time.Now()
	rec, err := ParseOlder([]byte(line), mustSender(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Hostname != "10.0.0.5" {
		t.Errorf("hostname fallback: got %q", rec.Hostname)
	}
	if !rec.Timestamp.Equal(now) {
		t.Errorf("timestamp should fall back to receive time")
	}
	if !rec.DeviceReportedTime.Equal(now) {
		t.Errorf("device_reported_time should equal received_at")
	}
}

func TestParseOlder_EmptyPayload(t *testing.T) {
	_, err := ParseOlder([]byte(""), mustSender(), time.Now())
	if err == nil {
		t.Fatal("expected ParseError for empty payload")
	}
}

func TestParseOlder_PRIBoundaries(t *testing.T) {
	cases := []struct {
		pri     string
		wantErr bool
	}{
		{"<0>Jan  1 00:00:00 host tag: msg", false},
		{"<191>Jan  1 00:00:00 host tag: msg", false},
		{"<192>Jan  1 00:00:00 host tag: msg", true},
		{"<abc>Jan  1 00:00:00 host tag: msg", true},
	}
	for _, tc := range cases {
		_, err := ParseOlder([]byte(tc.pri), mustSender(), time.Now())
		if tc.wantErr && err == nil {
			t.Errorf("%q: expected error, got none", tc.pri)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%q: unexpected error: %v", tc.pri, err)
		}
	}
}

func TestParseOlder_YearInference(t *testing.T) {
	// receivedAt is January; a December-dated message is more than six
	// months "ahead" by calendar distance and should be assigned the
	// previous year.
	receivedAt := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	line := "<14>Dec 31 23:59:59 host tag: end of year message"
	rec, err := ParseOlder([]byte(line), mustSender(), receivedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Timestamp.Year() != 2025 {
		t.Errorf("expected year 2025, got %d", rec.Timestamp.Year())
	}
}
