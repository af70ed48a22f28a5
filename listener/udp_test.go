package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"syslogd/batcher"
	"syslogd/models"
)

// fakeBackend is a minimal in-memory storage.Backend for exercising the
// receiver and batcher without a real SQLite file or search server.
type fakeBackend struct {
	written chan *models.LogRecord
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{written: make(chan *models.LogRecord, 10000)}
}

func (f *fakeBackend) EnsurePartition(ctx context.Context, key models.PartitionKey) error {
	return nil
}

func (f *fakeBackend) WriteBatch(ctx context.Context, key models.PartitionKey, records []*models.LogRecord) (int, error) {
	for _, r := range records {
		f.written <- r
	}
	return len(records), nil
}

func (f *fakeBackend) Close() error { return nil }

func sendUDP(t *testing.T, addr string, payload string) {
	t.Helper()
	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("dial udp: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write udp: %v", err)
	}
}

func TestReceiver_HappyPath(t *testing.T) {
	backend := newFakeBackend()
	b := batcher.New(backend, batcher.Config{
		BatchSize:     1000,
		BatchTimeout:  200 * time.Millisecond,
		QueueCapacity: 2000,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	recv, err := New("127.0.0.1", 0, b, false)
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	defer recv.Close()
	go recv.Run()

	addr := recv.conn.LocalAddr().String()

	for i := 0; i < 10; i++ {
		sendUDP(t, addr, "<34>Oct 11 22:14:15 myhost myapp: hello world")
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < 10 {
		select {
		case <-backend.written:
			received++
		case <-timeout:
			t.Fatalf("timed out waiting for records, got %d of 10", received)
		}
	}
}

func TestReceiver_EmptyDatagramDoesNotEnqueue(t *testing.T) {
	backend := newFakeBackend()
	b := batcher.New(backend, batcher.Config{
		BatchSize:     10,
		BatchTimeout:  50 * time.Millisecond,
		QueueCapacity: 10,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	recv, err := New("127.0.0.1", 0, b, false)
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	defer recv.Close()
	go recv.Run()

	sendUDP(t, recv.conn.LocalAddr().String(), "")

	select {
	case <-backend.written:
		t.Fatal("empty datagram should not produce a written record")
	case <-time.After(300 * time.Millisecond):
	}

	if recv.Counters.DroppedParse.Load() != 1 {
		t.Errorf("expected 1 dropped-parse, got %d", recv.Counters.DroppedParse.Load())
	}
}
