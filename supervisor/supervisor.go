// Package supervisor wires the parser, storage backend, batcher, and
// receiver together and owns the daemon's lifecycle: start, signal
// handling, drain, shutdown. Grounded in the teacher's backend/main.go
// wiring style, generalized with explicit lifecycle instead of bare
// goroutine fire-and-forget.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syslogd/batcher"
	"syslogd/config"
	"syslogd/db"
	"syslogd/listener"
	"syslogd/search"
	"syslogd/server"
	"syslogd/storage"
)

// shutdownDrainTimeout is the total wall-clock cap on shutdown, per
// spec.md §5, guaranteeing the process exits even if a flush hangs.
const shutdownDrainTimeout = 30 * time.Second

// Supervisor owns the receiver, batcher, and backend for the daemon's
// lifetime.
type Supervisor struct {
	cfg      *config.Config
	backend  storage.Backend
	batch    *batcher.Batcher
	receiver *listener.Receiver
}

// New builds the backend, batcher, and receiver from cfg and binds the UDP
// socket, but does not yet start any goroutine.
func New(cfg *config.Config) (*Supervisor, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	b := batcher.New(backend, batcher.Config{
		BatchSize:     cfg.BatchSize,
		BatchTimeout:  time.Duration(cfg.BatchTimeout * float64(time.Second)),
		QueueCapacity: cfg.QueueCapacity,
		Debug:         cfg.Debug,
	})

	recv, err := listener.New(cfg.BindIP, cfg.BindPort, b, cfg.Debug)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Supervisor{cfg: cfg, backend: backend, batch: b, receiver: recv}, nil
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return db.New(cfg.SQLiteDatabase), nil
	case config.DriverSearch:
		return search.New(cfg.SearchURL, cfg.SearchAPIKey, "syslog"), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// Run starts the batcher consumer and the receiver loop, blocking until a
// SIGINT/SIGTERM arrives or ctx is canceled, then drains and shuts down.
// Returns nil on clean shutdown (spec.md §6's exit code 0 path).
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	go s.batch.Run(runCtx)
	go s.receiver.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("supervisor: received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("supervisor: context canceled, shutting down")
	}

	return s.Shutdown()
}

// Counters returns a snapshot of the daemon's atomic counters for the
// status server to report, per spec.md §9's open question.
func (s *Supervisor) Counters() server.Counters {
	return server.Counters{
		Received:       s.receiver.Counters.Received.Load(),
		Parsed:         s.receiver.Counters.Parsed.Load(),
		DroppedParse:   s.receiver.Counters.DroppedParse.Load(),
		Submitted:      s.batch.Counters.Submitted.Load(),
		DroppedQueue:   s.batch.Counters.DroppedQueue.Load(),
		BatchesFlushed: s.batch.Counters.BatchesFlushed.Load(),
		BatchErrors:    s.batch.Counters.BatchErrors.Load(),
		RecordsWritten: s.batch.Counters.RecordsWritten.Load(),
	}
}

// Shutdown stops accepting new datagrams, drains the queue with a final
// flush, and closes the backend. The receiver stops first per spec.md §5's
// cancellation ordering.
func (s *Supervisor) Shutdown() error {
	if err := s.receiver.Close(); err != nil {
		log.Printf("supervisor: receiver close: %v", err)
	}

	if err := s.batch.Shutdown(shutdownDrainTimeout); err != nil {
		log.Printf("supervisor: shutdown drain exceeded timeout: %v", err)
	}

	if err := s.backend.Close(); err != nil {
		log.Printf("supervisor: backend close: %v", err)
		return err
	}
	return nil
}
