package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/session"
	"timeforge.app/internal/sim/state"
)

type Config struct {
	Session      *session.Session
	Logger       *log.Logger
	TickInterval time.Duration
	// UserID reports the signed-in player for WELCOME; may be nil.
	UserID func() string

	ActsPerSecond float64
	ActBurst      int
}

type Server struct {
	cfg    Config
	log    *log.Logger
	nextID atomic.Uint64
	conns  atomic.Int64

	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.ActsPerSecond <= 0 {
		cfg.ActsPerSecond = 30
	}
	if cfg.ActBurst <= 0 {
		cfg.ActBurst = 60
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Connections is the number of open client connections.
func (s *Server) Connections() int64 { return s.conns.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, maxQ := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.conns.Add(1)
		defer s.conns.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		updates, unsubscribe := s.cfg.Session.Subscribe()
		defer unsubscribe()

		acks := make(chan []byte, maxQ)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writeLoop(ctx, cancel, conn, acks, updates)
		}()

		lim := rate.NewLimiter(rate.Limit(s.cfg.ActsPerSecond), s.cfg.ActBurst)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			ack, ok := s.handleMessage(ctx, lim, msg)
			if !ok {
				continue
			}
			b, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			select {
			case acks <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-writerDone
	}
}

// writeLoop sends the current snapshot first, then ACKs and STATE pushes
// as they arrive. STATE is latest-wins; ACKs are never dropped.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, acks <-chan []byte, updates <-chan *state.GameState) {
	var seq uint64
	sendState := func(st *state.GameState) error {
		seq++
		return writeJSON(conn, protocol.NewStateMsg(s.cfg.Session.Catalogs(), st, seq))
	}
	if err := sendState(s.cfg.Session.Snapshot()); err != nil {
		cancel()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-acks:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		case st := <-updates:
			if err := sendState(st); err != nil {
				cancel()
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, maxQ int) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", 0
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", 0
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", 0
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", 0
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	maxQ = hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	sessionID = fmt.Sprintf("S%d", s.nextID.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		CatalogDigest:   s.cfg.Session.Catalogs().Digest,
		TickMS:          int(s.cfg.TickInterval / time.Millisecond),
	}
	if welcome.TickMS <= 0 {
		welcome.TickMS = 100
	}
	if s.cfg.UserID != nil {
		welcome.UserID = s.cfg.UserID()
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", 0
	}
	s.log.Printf("ws: %s connected as %s", hello.ClientName, sessionID)
	return sessionID, maxQ
}

// handleMessage answers one client frame. Frames that are not ACT are
// ignored.
func (s *Server) handleMessage(ctx context.Context, lim *rate.Limiter, msg []byte) (protocol.AckMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeAct {
		return protocol.AckMsg{}, false
	}
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return protocol.NewAck("", false, protocol.ErrProtoBadRequest, "malformed ACT"), true
	}
	if act.ProtocolVersion != protocol.Version {
		return protocol.NewAck(act.ID, false, protocol.ErrProtoVersion, "bad protocol_version"), true
	}
	if !lim.Allow() {
		return protocol.NewAck(act.ID, false, protocol.ErrRateLimit, "too many actions"), true
	}

	if act.Action == protocol.ActOfferTraits {
		offer, err := s.cfg.Session.OfferTraits(ctx, act.Count)
		if err != nil {
			return errorAck(act.ID, err), true
		}
		ack := protocol.NewAck(act.ID, true, "", "")
		ack.Offer = offer
		return ack, true
	}

	a, code, reason := actionFor(act)
	if a == nil {
		return protocol.NewAck(act.ID, false, code, reason), true
	}
	applied, err := s.cfg.Session.Do(ctx, a)
	if err != nil {
		return errorAck(act.ID, err), true
	}
	if !applied {
		return protocol.NewAck(act.ID, false, protocol.ErrRejected, "not applicable"), true
	}
	return protocol.NewAck(act.ID, true, "", ""), true
}

func errorAck(id string, err error) protocol.AckMsg {
	switch {
	case errors.Is(err, session.ErrSuspended):
		return protocol.NewAck(id, false, protocol.ErrSuspended, "session is loading")
	case errors.Is(err, session.ErrStopped):
		return protocol.NewAck(id, false, protocol.ErrStopped, "session stopped")
	default:
		return protocol.NewAck(id, false, protocol.ErrInternal, err.Error())
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
