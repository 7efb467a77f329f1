// Package recorder appends exported readings to per-device log files
// through a bounded queue, so polling tasks never block on storage.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
)

// DefaultQueueDepth bounds pending writes when Config leaves it zero.
const DefaultQueueDepth = 32

const timeLayout = "2006-01-02 15:04:05"

// ErrQueueFull indicates the pending-write queue rejected an entry.
var ErrQueueFull = errors.New("recorder: queue full")

// Config configures a Recorder.
type Config struct {
	// QueueDepth bounds entries waiting for storage.
	QueueDepth int
}

type entry struct {
	name string
	at   time.Time
	data []byte
}

// Recorder writes queued entries to <dir>/<name>.log, one timestamped
// line each.
type Recorder struct {
	dir   string
	queue chan entry

	now func() time.Time
}

// New creates a Recorder writing under dir.
func New(dir string, cfg Config) *Recorder {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Recorder{dir: dir, queue: make(chan entry, depth), now: time.Now}
}

// Name implements framework.Named.
func (r *Recorder) Name() string {
	return "recorder"
}

// Append queues one line for the named log. It never blocks; a full
// queue rejects the entry with ErrQueueFull.
func (r *Recorder) Append(name string, data []byte) error {
	e := entry{name: name, at: r.now(), data: data}
	select {
	case r.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run implements framework.Runnable, draining the queue until the
// context is canceled. Entries already queued are flushed before
// returning. Storage failures drop the entry and keep the loop alive.
func (r *Recorder) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			r.flush()
			return ctx.Err()
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *Recorder) write(e entry) {
	path := filepath.Join(r.dir, e.name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		glog.Errorf("recorder: open %s: %v", path, err)
		return
	}
	defer f.Close()
	line := e.at.Format(timeLayout) + " " + string(e.data) + "\n"
	if _, err := f.WriteString(line); err != nil {
		glog.Errorf("recorder: write %s: %v", path, err)
	}
}
