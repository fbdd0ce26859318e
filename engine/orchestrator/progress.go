package orchestrator

import (
	"sync"
	"time"
)

// Update is one progress event published to the sink.
type Update struct {
	ProjectID   string
	ProjectName string
	State       ProjectState
	Completed   int
	Total       int
	Message     string
}

// ProgressSink receives progress updates. Implementations must be safe for
// concurrent use; projects publish from parallel workers.
type ProgressSink interface {
	Publish(update Update)
}

// NopSink discards updates.
type NopSink struct{}

func (NopSink) Publish(Update) {}

// progressPublisher throttles intermediate updates to one per second per
// project. State transitions and completion events always pass.
type progressPublisher struct {
	sink ProgressSink
	now  func() time.Time

	mu        sync.Mutex
	lastSent  map[string]time.Time
	lastState map[string]ProjectState
}

func newProgressPublisher(sink ProgressSink) *progressPublisher {
	if sink == nil {
		sink = NopSink{}
	}
	return &progressPublisher{
		sink:      sink,
		now:       time.Now,
		lastSent:  make(map[string]time.Time),
		lastState: make(map[string]ProjectState),
	}
}

func (p *progressPublisher) publish(u Update) {
	p.mu.Lock()
	now := p.now()
	transition := p.lastState[u.ProjectID] != u.State
	complete := u.Total > 0 && u.Completed >= u.Total
	throttled := !transition && !complete && now.Sub(p.lastSent[u.ProjectID]) < time.Second
	if !throttled {
		p.lastSent[u.ProjectID] = now
		p.lastState[u.ProjectID] = u.State
	}
	p.mu.Unlock()
	if throttled {
		return
	}
	p.sink.Publish(u)
}
