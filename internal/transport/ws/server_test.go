package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/clock"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/session"
	"timeforge.app/internal/sim/state"
	"timeforge.app/internal/sim/tuning"
)

func startServer(t *testing.T, cfg Config) (*session.Session, string) {
	t.Helper()
	sess := session.New(session.Config{
		Catalogs: catalogs.Default(),
		Tuning:   tuning.Defaults(),
		Clock:    clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		Rand:     rng.NewSeeded(1),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()

	cfg.Session = sess
	srv := httptest.NewServer(NewServer(cfg).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return sess, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readType reads frames until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			if err := json.Unmarshal(msg, out); err != nil {
				t.Fatalf("unmarshal %s: %v", typ, err)
			}
			return
		}
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	var w protocol.WelcomeMsg
	readType(t, conn, protocol.TypeWelcome, &w)
	return w
}

func act(id, action string) protocol.ActMsg {
	return protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: id, Action: action}
}

func TestHandshake_WelcomeThenState(t *testing.T) {
	sess, url := startServer(t, Config{TickInterval: 250 * time.Millisecond, UserID: func() string { return "u1" }})
	conn := dial(t, url)

	w := hello(t, conn)
	if w.SessionID == "" || w.TickMS != 250 || w.UserID != "u1" {
		t.Fatalf("welcome=%+v", w)
	}
	if w.CatalogDigest != sess.Catalogs().Digest {
		t.Fatalf("digest=%q want=%q", w.CatalogDigest, sess.Catalogs().Digest)
	}
	var st protocol.StateMsg
	readType(t, conn, protocol.TypeState, &st)
	if st.Seq != 1 || st.State == nil || st.Rates.ClickPower <= 0 {
		t.Fatalf("state=%+v", st)
	}
}

func TestHandshake_BadVersionCloses(t *testing.T) {
	_, url := startServer(t, Config{})
	conn := dial(t, url)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after bad version")
	}
}

func TestAct_ClickIsAppliedAndPushed(t *testing.T) {
	sess, url := startServer(t, Config{})
	conn := dial(t, url)
	hello(t, conn)

	send(t, conn, act("A1", protocol.ActClick))
	var acked, pushed bool
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !acked || !pushed {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: acked=%v pushed=%v err=%v", acked, pushed, err)
		}
		base, _ := protocol.DecodeBase(msg)
		switch base.Type {
		case protocol.TypeAck:
			var ack protocol.AckMsg
			_ = json.Unmarshal(msg, &ack)
			if ack.AckFor != "A1" || !ack.Applied {
				t.Fatalf("ack=%+v", ack)
			}
			acked = true
		case protocol.TypeState:
			var st protocol.StateMsg
			_ = json.Unmarshal(msg, &st)
			if st.State != nil && st.State.TotalClicks == 1 {
				pushed = true
			}
		}
	}
	if got := sess.Snapshot().TotalClicks; got != 1 {
		t.Fatalf("clicks=%d want=1", got)
	}
}

func TestAct_RejectionsCarryCodes(t *testing.T) {
	_, url := startServer(t, Config{})
	conn := dial(t, url)
	hello(t, conn)

	cases := []struct {
		msg  protocol.ActMsg
		code string
	}{
		{func() protocol.ActMsg { m := act("B1", protocol.ActBuyBuilding); m.Target = "foundry"; return m }(), protocol.ErrRejected},
		{act("B2", protocol.ActBuyUpgrade), protocol.ErrBadRequest},
		{act("B3", "TELEPORT"), protocol.ErrUnknownAction},
		{func() protocol.ActMsg { m := act("B4", protocol.ActClick); m.ProtocolVersion = "0.1"; return m }(), protocol.ErrProtoVersion},
	}
	for _, tc := range cases {
		send(t, conn, tc.msg)
		var ack protocol.AckMsg
		readType(t, conn, protocol.TypeAck, &ack)
		if ack.AckFor != tc.msg.ID || ack.Applied || ack.Code != tc.code {
			t.Fatalf("%s: ack=%+v want code %s", tc.msg.ID, ack, tc.code)
		}
		if !protocol.IsKnownCode(ack.Code) {
			t.Fatalf("unknown code %q", ack.Code)
		}
	}
}

func TestAct_RateLimited(t *testing.T) {
	_, url := startServer(t, Config{ActsPerSecond: 0.001, ActBurst: 1})
	conn := dial(t, url)
	hello(t, conn)

	send(t, conn, act("C1", protocol.ActClick))
	send(t, conn, act("C2", protocol.ActClick))
	var first, second protocol.AckMsg
	readType(t, conn, protocol.TypeAck, &first)
	readType(t, conn, protocol.TypeAck, &second)
	if !first.Applied {
		t.Fatalf("first=%+v", first)
	}
	if second.Applied || second.Code != protocol.ErrRateLimit {
		t.Fatalf("second=%+v", second)
	}
}

func TestAct_OfferTraits(t *testing.T) {
	_, url := startServer(t, Config{})
	conn := dial(t, url)
	hello(t, conn)

	m := act("D1", protocol.ActOfferTraits)
	m.Count = 3
	send(t, conn, m)
	var ack protocol.AckMsg
	readType(t, conn, protocol.TypeAck, &ack)
	if !ack.Applied || len(ack.Offer) != 3 {
		t.Fatalf("ack=%+v", ack)
	}
}

func TestActionFor_AllActionsMapped(t *testing.T) {
	on := true
	names := []string{
		protocol.ActClick, protocol.ActBuyBuilding, protocol.ActBuyUpgrade, protocol.ActBuyMetaUpgrade,
		protocol.ActSelectTraits, protocol.ActClaimDailyTask, protocol.ActCollapse, protocol.ActSetPurchaseMode,
		protocol.ActUpdateSettings, protocol.ActSetAutoSave, protocol.ActTutorialStep,
		protocol.ActDismissTutorial, protocol.ActClaimOfflineGain,
	}
	for _, n := range names {
		m := protocol.ActMsg{Action: n, Target: "x", IDs: []string{"x"}, Enabled: &on, Settings: &state.Settings{}}
		if a, code, _ := actionFor(m); a == nil {
			t.Fatalf("%s unmapped: %s", n, code)
		}
	}
}

func TestActionFor_EmptyTraitSelection(t *testing.T) {
	a, code, _ := actionFor(protocol.ActMsg{Action: protocol.ActSelectTraits})
	if a == nil || code != "" {
		t.Fatalf("empty SELECT_TRAITS: action=%v code=%q", a != nil, code)
	}
}
