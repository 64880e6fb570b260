// Package heartbeat lets `appraise status` tell a live gateway from a
// crashed one without talking to its socket. The gateway drops a small
// JSON file on an interval; the status command reads it back and judges
// its age.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Status is the verdict on a heartbeat file.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Heartbeat is the data written to the heartbeat file. Tasks is a
// snapshot of the task count at write time so `appraise status` can
// report it without opening the store.
type Heartbeat struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Tasks     int       `json:"tasks"`
}

// Writer beats on an interval until stopped.
type Writer struct {
	path     string
	addr     string
	interval time.Duration
	tasks    func() int
	started  time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWriter creates a heartbeat writer for the gateway bound to addr.
// tasks is polled on every write; nil reports zero. A non-positive
// interval falls back to 30s.
func NewWriter(path, addr string, interval time.Duration, tasks func() int) *Writer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Writer{path: path, addr: addr, interval: interval, tasks: tasks}
}

// Start writes the first beat synchronously, then keeps beating in the
// background. Starting a running writer is a no-op.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	w.started = time.Now()
	w.done = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.beat()
	go w.run(ctx)
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.beat()
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and removes the file, so a clean shutdown reads as
// dead rather than stale.
func (w *Writer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return
	}

	w.cancel()
	<-w.done
	w.cancel = nil

	os.Remove(w.path)
}

// beat writes the file through a rename so readers never see a torn write.
func (w *Writer) beat() {
	count := 0
	if w.tasks != nil {
		count = w.tasks()
	}

	data, err := json.MarshalIndent(Heartbeat{
		PID:       os.Getpid(),
		Addr:      w.addr,
		StartedAt: w.started,
		Timestamp: time.Now(),
		Uptime:    time.Since(w.started).Truncate(time.Second).String(),
		Tasks:     count,
	}, "", "  ")
	if err != nil {
		return
	}

	tmp := w.path + ".tmp"
	if os.WriteFile(tmp, data, 0o644) != nil {
		return
	}
	os.Rename(tmp, w.path)
}

// Check reads the heartbeat file at path and judges it. A beat older
// than maxAge is stale; a missing file is dead with a nil error, since
// that is the normal state when no gateway runs.
func Check(path string, maxAge time.Duration) (Status, *Heartbeat, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return StatusDead, nil, nil
	case err != nil:
		return StatusDead, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return StatusDead, nil, fmt.Errorf("decode heartbeat: %w", err)
	}

	if time.Since(hb.Timestamp) > maxAge {
		return StatusStale, &hb, nil
	}
	return StatusAlive, &hb, nil
}
