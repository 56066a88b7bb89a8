package analytics

import (
	"errors"
	"sync"
	"testing"
)

type memSink struct {
	mu   sync.Mutex
	evs  []Event
	fail bool
}

func (m *memSink) WriteEvent(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evs = append(m.evs, ev)
	if m.fail {
		return errors.New("boom")
	}
	return nil
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	a, b := &memSink{}, &memSink{fail: true}
	d := NewDispatcher(nil, 16, a, b)
	d.SetUser("u1")
	d.Record(KindCollapse, map[string]any{"echoes_earned": 13.0})
	d.Record(KindStageReached, map[string]any{"stage": "starbirth"})
	d.Close()

	if len(a.evs) != 2 || len(b.evs) != 2 {
		t.Fatalf("a=%d b=%d want 2 each", len(a.evs), len(b.evs))
	}
	ev := a.evs[0]
	if ev.Kind != KindCollapse || ev.UserID != "u1" || ev.ID == "" {
		t.Fatalf("event=%+v", ev)
	}
	if a.evs[0].ID == a.evs[1].ID {
		t.Fatalf("event ids not unique")
	}
}

func TestDispatcher_RejectsUnknownKind(t *testing.T) {
	s := &memSink{}
	d := NewDispatcher(nil, 4, s)
	d.Record(Kind("bogus"), nil)
	d.Close()
	if len(s.evs) != 0 || d.Recorded() != 0 {
		t.Fatalf("unknown kind delivered")
	}
}

func TestDispatcher_RecordAfterCloseIsNoop(t *testing.T) {
	s := &memSink{}
	d := NewDispatcher(nil, 4, s)
	d.Close()
	d.Record(KindRunStart, nil)
	if d.Recorded() != 0 {
		t.Fatalf("recorded after close")
	}
}

type blockSink struct{ release chan struct{} }

func (b blockSink) WriteEvent(Event) error {
	<-b.release
	return nil
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	bs := blockSink{release: make(chan struct{})}
	d := NewDispatcher(nil, 1, bs)
	for i := 0; i < 10; i++ {
		d.Record(KindRunStart, nil)
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	if d.Recorded()+d.Dropped() != 10 {
		t.Fatalf("recorded=%d dropped=%d", d.Recorded(), d.Dropped())
	}
	close(bs.release)
	d.Close()
}
