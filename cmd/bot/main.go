package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"timeforge.app/internal/protocol"
	"timeforge.app/internal/sim/catalogs"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "bot", "client name")
		cps        = flag.Float64("cps", 5, "clicks per second")
		collapseAt = flag.Float64("collapse_at", 10, "collapse once the payout reaches this many echoes")
		minRun     = flag.Duration("min_run", 2*time.Minute, "minimum run length before collapsing")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        16,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	cats := catalogs.Default()
	strat := newStrategy(cats, *collapseAt, minRun.Seconds())

	states := make(chan protocol.StateMsg, 1)
	acks := make(chan protocol.AckMsg, 16)
	go readLoop(conn, logger, cats, states, acks)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	interval := time.Second
	if *cps > 0 {
		interval = time.Duration(float64(time.Second) / *cps)
	}
	clicker := time.NewTicker(interval)
	defer clicker.Stop()

	var lastRun, traitLimit int
	for {
		select {
		case <-stop:
			return
		case <-clicker.C:
			if err := conn.WriteJSON(strat.click()); err != nil {
				logger.Printf("write: %v", err)
				return
			}
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.State.RunNumber != lastRun {
				logger.Printf("run %d started (echoes=%.0f)", st.State.RunNumber, st.State.Echoes)
				lastRun = st.State.RunNumber
			}
			traitLimit = st.Rates.TraitChoiceLimit
			for _, m := range strat.plan(st.State, st.Rates) {
				if err := conn.WriteJSON(m); err != nil {
					logger.Printf("write: %v", err)
					return
				}
			}
		case ack := <-acks:
			if len(ack.Offer) > 0 {
				if err := conn.WriteJSON(strat.choose(ack.Offer, traitLimit)); err != nil {
					logger.Printf("write: %v", err)
					return
				}
			}
		}
	}
}

// readLoop forwards STATE (latest wins) and ACK frames until the
// connection drops.
func readLoop(conn *websocket.Conn, logger *log.Logger, cats *catalogs.Catalogs, states chan protocol.StateMsg, acks chan<- protocol.AckMsg) {
	defer close(states)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			if w.CatalogDigest != cats.Digest {
				logger.Printf("warning: server catalog %s differs from local", w.CatalogDigest)
			}
			logger.Printf("WELCOME session=%s tick_ms=%d user=%q", w.SessionID, w.TickMS, w.UserID)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil || st.State == nil {
				continue
			}
			select {
			case <-states:
			default:
			}
			states <- st

		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				continue
			}
			if !ack.Applied && ack.Code != protocol.ErrRejected {
				logger.Printf("ACK %s: %s %s", ack.AckFor, ack.Code, ack.Message)
			}
			select {
			case acks <- ack:
			default:
			}
		}
	}
}
