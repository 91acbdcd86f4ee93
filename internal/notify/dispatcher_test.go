package notify

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Job
	fail  bool
	delay time.Duration
}

func (r *recordingSender) Send(toAddress, displayName string) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, Job{ToAddress: toAddress, DisplayName: displayName})
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDispatcherDeliversQueuedJobs(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, DispatcherConfig{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8})

	d.Notify("ana@example.com", "Ana")
	d.Notify("bo@example.com", "Bo")

	waitFor(t, func() bool { return sender.count() == 2 })

	sender.mu.Lock()
	defer sender.mu.Unlock()
	seen := map[string]bool{}
	for _, job := range sender.sent {
		seen[job.ToAddress] = true
	}
	if !seen["ana@example.com"] || !seen["bo@example.com"] {
		t.Fatalf("missing deliveries: %+v", sender.sent)
	}
}

func TestDispatcherSurvivesSendFailures(t *testing.T) {
	sender := &recordingSender{fail: true}
	d := NewDispatcher(sender, DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 8})

	d.Notify("ana@example.com", "Ana")
	time.Sleep(50 * time.Millisecond)

	// The sender must be released back and usable for the next job.
	sender.mu.Lock()
	sender.fail = false
	sender.mu.Unlock()

	d.Notify("bo@example.com", "Bo")
	waitFor(t, func() bool { return sender.count() == 1 })
	if sender.sent[0].ToAddress != "bo@example.com" {
		t.Fatalf("unexpected delivery: %+v", sender.sent[0])
	}
}

func TestDispatcherScalesToMaxWorkers(t *testing.T) {
	sender := &recordingSender{delay: 30 * time.Millisecond}
	d := NewDispatcher(sender, DispatcherConfig{MinWorkers: 1, MaxWorkers: 4, QueueSize: 16})

	for i := 0; i < 8; i++ {
		d.Notify("user@example.com", "User")
	}
	waitFor(t, func() bool { return sender.count() == 8 })

	d.pool.mu.Lock()
	running := d.pool.running
	d.pool.mu.Unlock()
	if running > 4 {
		t.Fatalf("pool exceeded max workers: %d", running)
	}
}
