// Package analytics records gameplay events without ever blocking the
// caller. Events are fanned out to sinks on a dedicated goroutine; when
// the queue is full new events are dropped.
package analytics

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRunStart             Kind = "run_start"
	KindCollapse             Kind = "collapse"
	KindStageReached         Kind = "stage_reached"
	KindTraitSelected        Kind = "trait_selected"
	KindMetaUpgradePurchased Kind = "meta_upgrade_purchased"
	KindAchievementUnlocked  Kind = "achievement_unlocked"
)

var knownKinds = map[Kind]bool{
	KindRunStart:             true,
	KindCollapse:             true,
	KindStageReached:         true,
	KindTraitSelected:        true,
	KindMetaUpgradePurchased: true,
	KindAchievementUnlocked:  true,
}

func (k Kind) Valid() bool { return knownKinds[k] }

type Event struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	UserID  string         `json:"user_id,omitempty"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Recorder is the fire-and-forget interface the game loop depends on.
type Recorder interface {
	Record(kind Kind, payload map[string]any)
}

// Sink persists events. Errors are logged and otherwise ignored.
type Sink interface {
	WriteEvent(Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(Kind, map[string]any) {}

type Dispatcher struct {
	log   *log.Logger
	sinks []Sink
	now   func() time.Time

	mu     sync.RWMutex
	ch     chan Event
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	user     atomic.Value // string
	recorded atomic.Uint64
	dropped  atomic.Uint64
}

func NewDispatcher(logger *log.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if buffer <= 0 {
		buffer = 1024
	}
	d := &Dispatcher{
		log:   logger,
		sinks: sinks,
		now:   time.Now,
		ch:    make(chan Event, buffer),
	}
	d.user.Store("")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d
}

// SetUser stamps subsequent events with userID. Empty means anonymous.
func (d *Dispatcher) SetUser(userID string) { d.user.Store(userID) }

func (d *Dispatcher) Record(kind Kind, payload map[string]any) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed.Load() {
		return
	}
	if !kind.Valid() {
		d.log.Printf("analytics: unknown event kind %q", kind)
		return
	}
	ev := Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  d.user.Load().(string),
		At:      d.now().UTC(),
		Payload: payload,
	}
	select {
	case d.ch <- ev:
		d.recorded.Add(1)
	default:
		d.dropped.Add(1)
	}
}

func (d *Dispatcher) Recorded() uint64 { return d.recorded.Load() }
func (d *Dispatcher) Dropped() uint64  { return d.dropped.Load() }

// Close stops accepting events and waits for queued ones to reach the sinks.
func (d *Dispatcher) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed.Store(true)
		close(d.ch)
		d.mu.Unlock()
		d.wg.Wait()
	})
	return nil
}

func (d *Dispatcher) loop() {
	for ev := range d.ch {
		for _, s := range d.sinks {
			if err := s.WriteEvent(ev); err != nil {
				d.log.Printf("analytics: %s %s: %v", ev.Kind, ev.ID, err)
			}
		}
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.At.Format(time.RFC3339), e.Kind, e.ID)
}
