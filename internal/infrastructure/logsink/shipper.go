package logsink

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBuffer = 1024
	maxBatch      = 256
	writeTimeout  = 10 * time.Second
)

// lineEscaper keeps every entry on a single line of the log object.
var lineEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// BatchWriter persists a batch of log lines.
type BatchWriter interface {
	AppendLines(ctx context.Context, lines []string) error
}

// Stats counts entries by outcome.
type Stats struct {
	Shipped int64
	Dropped int64
	Failed  int64
}

// Shipper implements ports.LogSink. A single worker drains a buffered
// channel and writes whatever has accumulated as one batch, which also
// serialises the read-modify-write appends of S3Appender.
type Shipper struct {
	entries chan string
	writer  BatchWriter
	log     zerolog.Logger
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	shipped atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewShipper creates a Shipper with room for buffer pending entries.
// If buffer <= 0, defaultBuffer is used.
func NewShipper(writer BatchWriter, buffer int, log zerolog.Logger) *Shipper {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Shipper{
		entries: make(chan string, buffer),
		writer:  writer,
		log:     log,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. It runs until Stop is called.
func (s *Shipper) Start() {
	go s.run()
}

// Append stamps entry with the current time and queues it. Line breaks inside
// entry are escaped. It never blocks:
// when the buffer is full or the shipper is stopped the entry is dropped.
func (s *Shipper) Append(entry string) {
	select {
	case <-s.stop:
		s.dropped.Add(1)
		return
	default:
	}

	line := s.now().UTC().Format(time.RFC3339) + " " + lineEscaper.Replace(entry)
	select {
	case s.entries <- line:
	default:
		s.dropped.Add(1)
	}
}

// Stop flushes queued entries and waits for the worker to exit or ctx to
// expire.
func (s *Shipper) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the entry counters.
func (s *Shipper) Stats() Stats {
	return Stats{
		Shipped: s.shipped.Load(),
		Dropped: s.dropped.Load(),
		Failed:  s.failed.Load(),
	}
}

func (s *Shipper) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			for {
				batch := s.drain(nil)
				if len(batch) == 0 {
					return
				}
				s.write(batch)
			}
		case line := <-s.entries:
			s.write(s.drain([]string{line}))
		}
	}
}

// drain appends queued entries to batch without blocking.
func (s *Shipper) drain(batch []string) []string {
	for len(batch) < maxBatch {
		select {
		case line := <-s.entries:
			batch = append(batch, line)
		default:
			return batch
		}
	}
	return batch
}

func (s *Shipper) write(batch []string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.writer.AppendLines(ctx, batch); err != nil {
		s.failed.Add(int64(len(batch)))
		s.log.Error().Err(err).Int("entries", len(batch)).Msg("log shipping failed")
		return
	}
	s.shipped.Add(int64(len(batch)))
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Append(string) {}
