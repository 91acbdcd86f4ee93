package notify

import (
	"log"
	"sync"
	"time"
)

type senderMeta struct {
	ch        chan Job
	lastUsed  time.Time
	enqueued  bool // is in the idle queue
	discarded bool // is targeted as delete
}

type senderPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*senderMeta
	metadata map[chan Job]*senderMeta
	min      int
	max      int
	running  int
	expiry   time.Duration
	sender   Sender
}

const defaultSenderIdle = 30 * time.Second

func newSenderPool(minWorkers, maxWorkers int, idle time.Duration, sender Sender) *senderPool {
	if idle <= 0 {
		idle = defaultSenderIdle
	}
	p := &senderPool{
		metadata: make(map[chan Job]*senderMeta),
		min:      minWorkers,
		max:      maxWorkers,
		expiry:   idle,
		sender:   sender,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.purgeStaleSenders()
	return p
}

// warmUp pre-spawns the minimum number of senders.
func (p *senderPool) warmUp() {
	for i := 0; i < p.min; i++ {
		p.mu.Lock()
		meta := p.addSenderLocked()
		p.mu.Unlock()
		p.Release(meta.ch)
	}
}

// acquire returns an idle sender channel, spawning one when under the cap
// and blocking when the pool is saturated.
func (p *senderPool) acquire() chan Job {
	p.mu.Lock()
	for {
		if meta := p.popIdleLocked(); meta != nil {
			p.mu.Unlock()
			return meta.ch
		}
		if p.running < p.max {
			meta := p.addSenderLocked()
			p.mu.Unlock()
			return meta.ch
		}
		p.cond.Wait()
	}
}

// Release returns a sender to the idle queue.
func (p *senderPool) Release(ch chan Job) {
	p.mu.Lock()
	meta, ok := p.metadata[ch]
	if !ok || meta.discarded || meta.enqueued {
		p.mu.Unlock()
		return
	}
	meta.enqueued = true
	meta.lastUsed = time.Now()
	p.idle = append(p.idle, meta)
	p.mu.Unlock()
	p.cond.Signal()
}

// retire removes a sender from the pool.
func (p *senderPool) retire(ch chan Job) {
	p.mu.Lock()
	if meta, ok := p.metadata[ch]; ok {
		delete(p.metadata, ch)
		meta.discarded = true
		if p.running > 0 {
			p.running--
		}
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *senderPool) addSenderLocked() *senderMeta {
	meta := &senderMeta{ch: make(chan Job)}
	p.metadata[meta.ch] = meta
	p.running++
	go p.senderLoop(meta.ch)
	return meta
}

func (p *senderPool) senderLoop(ch chan Job) {
	for job := range ch {
		if job.stop {
			p.retire(ch)
			return
		}
		debugLog("[notify] sending reminder to %s", job.ToAddress)
		if err := p.sender.Send(job.ToAddress, job.DisplayName); err != nil {
			log.Printf("away notification failed: %v", err)
		}
		p.Release(ch)
	}
}

func (p *senderPool) popIdleLocked() *senderMeta {
	for len(p.idle) > 0 {
		meta := p.idle[0]
		p.idle = p.idle[1:]
		if meta.discarded {
			continue
		}
		meta.enqueued = false
		return meta
	}
	return nil
}

// purgeStaleSenders calls shutdownExpired on every expiry tick.
func (p *senderPool) purgeStaleSenders() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		<-ticker.C
		p.shutdownExpired()
	}
}

// shutdownExpired retires idle senders past the expiry, keeping the minimum.
func (p *senderPool) shutdownExpired() {
	var stale []*senderMeta
	now := time.Now()

	p.mu.Lock()
	if len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0]
	for _, meta := range p.idle {
		if meta.discarded {
			continue
		}
		if now.Sub(meta.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			meta.enqueued = false
			stale = append(stale, meta)
			continue
		}
		remaining = append(remaining, meta)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, meta := range stale {
		meta.ch <- Job{stop: true}
	}
}
