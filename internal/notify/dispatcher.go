package notify

import (
	"log"
	"time"
)

// Sender performs one synchronous delivery.
type Sender interface {
	Send(toAddress, displayName string) error
}

// Job is one queued notification.
type Job struct {
	ToAddress   string
	DisplayName string

	stop bool // internal: retires the receiving sender
}

// DispatcherConfig sizes the notification worker pool.
type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

// Dispatcher queues notifications and fans them out to a pool of sender
// goroutines. Enqueueing never blocks the caller: when the queue is full the
// notification is dropped and logged.
type Dispatcher struct {
	jobQueue chan Job
	pool     *senderPool
}

// NewDispatcher starts the dispatch loop with MinWorkers warm senders.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	d := &Dispatcher{
		jobQueue: make(chan Job, cfg.QueueSize),
		pool:     newSenderPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout, sender),
	}
	d.pool.warmUp()
	go d.run()
	return d
}

// Notify enqueues one reminder. Implements tracker.Notifier.
func (d *Dispatcher) Notify(toAddress, displayName string) {
	job := Job{ToAddress: toAddress, DisplayName: displayName}
	select {
	case d.jobQueue <- job:
		debugLog("[notify] queued reminder for %s", toAddress)
	default:
		log.Printf("notification queue full, dropping reminder for %s", toAddress)
	}
}

func (d *Dispatcher) run() {
	for job := range d.jobQueue {
		ch := d.pool.acquire()
		ch <- job
	}
}
