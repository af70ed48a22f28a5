// Command loadgen is a standalone UDP traffic generator for exercising the
// daemon, adapted from the teacher's bench/main.go (flag-driven worker
// pool, atomic throughput counters) and narrowed to UDP-only and to the
// two wire formats this daemon accepts, per spec.md §6.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	host     string
	port     int
	total    int
	workers  int
	format   string
	appName  string
	hostname string
	facility int
	severity int
)

var (
	startTime time.Time
	sentLogs  int64
	errCount  int64
)

func init() {
	defaultHostname, err := os.Hostname()
	if err != nil {
		defaultHostname = "loadgen"
	}

	flag.StringVar(&host, "host", "127.0.0.1", "target host")
	flag.IntVar(&port, "port", 5140, "target UDP port")
	flag.IntVar(&total, "total", 100000, "total number of datagrams to send")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "number of worker goroutines")
	flag.StringVar(&format, "format", "older", "wire format: older or newer")
	flag.StringVar(&appName, "app", "loadgen", "tag/appname for generated messages")
	flag.StringVar(&hostname, "hostname", defaultHostname, "hostname for generated messages")
	flag.IntVar(&facility, "facility", 1, "syslog facility code")
	flag.IntVar(&severity, "severity", 6, "syslog severity code")
	flag.Parse()

	if workers < 1 {
		workers = 1
	}
	if total < 1 {
		total = 1
	}
}

func main() {
	fmt.Printf("sending %d datagrams to %s:%d (%s format) with %d workers\n",
		total, host, port, format, workers)

	var wg sync.WaitGroup
	perWorker := total / workers
	remainder := total % workers
	startTime = time.Now()

	for i := 0; i < workers; i++ {
		n := perWorker
		if i < remainder {
			n++
		}
		wg.Add(1)
		go func(workerID, count int) {
			defer wg.Done()
			sendUDP(workerID, count)
		}(i, n)
	}
	wg.Wait()

	duration := time.Since(startTime)
	fmt.Printf("sent=%d errors=%d duration=%.2fs rate=%.0f/s\n",
		sentLogs, errCount, duration.Seconds(), float64(sentLogs)/duration.Seconds())
}

func sendUDP(workerID, count int) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		atomic.AddInt64(&errCount, int64(count))
		return
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		atomic.AddInt64(&errCount, int64(count))
		return
	}
	defer conn.Close()

	priority := facility*8 + severity
	for i := 0; i < count; i++ {
		line := buildLine(priority, workerID, i)
		if _, err := conn.Write([]byte(line)); err != nil {
			atomic.AddInt64(&errCount, 1)
			continue
		}
		atomic.AddInt64(&sentLogs, 1)
	}
}

func buildLine(priority, workerID, seq int) string {
	if format == "newer" {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		return fmt.Sprintf("<%d>1 %s %s %s %d MSG%d-%d - load generator message %d from worker %d\n",
			priority, ts, hostname, appName, os.Getpid(), workerID, seq, seq, workerID)
	}
	ts := time.Now().Format("Jan _2 15:04:05")
	return fmt.Sprintf("<%d>%s %s %s: load generator message %d from worker %d\n",
		priority, ts, hostname, appName, seq, workerID)
}
