// Package listener implements the UDP receive path: a single
// datagram-reading loop that hands each datagram to the parser and
// enqueues the parsed record into the batcher. Grounded in the teacher's
// listener/udp.go (raw net.ListenUDP, fixed receive buffer) and
// brandtall-Siphon's logger/pipeline.go reader (SO_RCVBUF tuning via
// SetReadBuffer, minimal per-datagram allocation).
package listener

import (
	"log"
	"net"
	"sync/atomic"
	"time"

	"syslogd/batcher"
	"syslogd/errs"
	"syslogd/formats"
)

const (
	// rcvBufSize requests the largest receive buffer the OS will typically
	// grant without a privileged sysctl bump; per spec.md §4.4 this is the
	// principal knob against packet loss under burst load, alongside
	// batch_size.
	rcvBufSize = 8 * 1024 * 1024
	bufferSize = 64 * 1024
)

// Counters mirrors the receiver's single-writer atomic counters from
// spec.md §5 and §9.
type Counters struct {
	Received     atomic.Int64
	Parsed       atomic.Int64
	DroppedParse atomic.Int64
}

// Receiver binds a UDP socket and runs the single datagram-reading loop.
type Receiver struct {
	conn    *net.UDPConn
	batcher *batcher.Batcher
	debug   bool

	Counters Counters
}

// New binds a UDP socket to bindIP:bindPort and returns a Receiver bound to
// b. Returns a BindError on failure, per spec.md §7 (fatal at startup).
func New(bindIP string, bindPort int, b *batcher.Batcher, debug bool) (*Receiver, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(bindIP), Port: bindPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errs.NewBindError(err)
	}
	if err := conn.SetReadBuffer(rcvBufSize); err != nil {
		// Not fatal: the OS may cap SO_RCVBUF below the request. Proceed
		// with whatever buffer the kernel granted.
		log.Printf("listener: SetReadBuffer(%d) failed, proceeding with default: %v", rcvBufSize, err)
	}
	return &Receiver{conn: conn, batcher: b, debug: debug}, nil
}

// Run blocks, reading datagrams until the connection is closed (typically
// by Close from the supervisor's shutdown sequence). It never allocates
// long-lived state beyond what becomes the LogRecord, and it never awaits
// the batcher: Submit is non-blocking, per spec.md §5.
func (r *Receiver) Run() {
	buf := make([]byte, bufferSize)
	for {
		r.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			// A closed connection surfaces here during shutdown.
			return
		}

		r.Counters.Received.Add(1)

		receivedAt := time.Now()
		payload := make([]byte, n)
		copy(payload, buf[:n])

		rec, err := formats.Parse(payload, addr, receivedAt)
		if err != nil {
			r.Counters.DroppedParse.Add(1)
			if r.debug {
				log.Printf("listener: parse error from %s: %v", addr, err)
			}
			continue
		}
		r.Counters.Parsed.Add(1)

		if err := r.batcher.Submit(rec); err != nil && r.debug {
			log.Printf("listener: submit dropped record from %s: %v", addr, err)
		}
	}
}

// Close stops the receive loop by closing the socket. Idempotent from the
// caller's perspective: a second call returns net's own "already closed"
// error, which is safe to ignore during shutdown.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
