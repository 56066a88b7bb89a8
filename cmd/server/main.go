package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timeforge.app/internal/analytics"
	"timeforge.app/internal/identity"
	persistlog "timeforge.app/internal/persistence/log"
	"timeforge.app/internal/persistence/savedb"
	"timeforge.app/internal/persistence/store"
	"timeforge.app/internal/sim/catalogs"
	"timeforge.app/internal/sim/clock"
	"timeforge.app/internal/sim/rng"
	"timeforge.app/internal/sim/session"
	"timeforge.app/internal/sim/tuning"
	"timeforge.app/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", envString("TF_DATA_DIR", "./data"), "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the SQLite store (no accounts, remote saves or event index)")
		seed       = flag.Uint64("seed", 0, "fixed rng seed for reproducible sessions (0 = crypto rng)")
		actRate    = flag.Float64("ws_act_rate", 30, "per-connection ACT messages per second")
		actBurst   = flag.Int("ws_act_burst", 60, "per-connection ACT burst")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats := catalogs.Default()
	if err := cats.Validate(); err != nil {
		logger.Fatalf("catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	eventLog := persistlog.NewEventLogger(*dataDir)
	sinks := []analytics.Sink{eventLog}

	var db *savedb.DB
	var ident *identity.Service
	if !*disableDB {
		db, err = savedb.Open(filepath.Join(*dataDir, "timeforge.sqlite"))
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		ident, err = identity.Open(db.SQL())
		if err != nil {
			logger.Fatalf("identity: %v", err)
		}
		sinks = append(sinks, db)
	}
	events := analytics.NewDispatcher(log.New(os.Stdout, "[analytics] ", log.LstdFlags), 1024, sinks...)

	storeCfg := store.Config{
		DataDir:       *dataDir,
		Slot:          tune.SaveSlot,
		CatalogDigest: cats.Digest,
		Logger:        log.New(os.Stdout, "[store] ", log.LstdFlags),
	}
	if db != nil {
		storeCfg.Remote = db
	}

	src := rng.Default()
	if *seed != 0 {
		src = rng.NewSeeded(*seed)
	}

	a := &app{
		store:  store.New(storeCfg),
		ident:  ident,
		events: events,
		db:     db,
		log:    logger,
	}
	a.sess = session.New(session.Config{
		Catalogs: cats,
		Tuning:   tune,
		Clock:    clock.Real{},
		Rand:     src,
		Saver:    a,
		Recorder: events,
		Logger:   log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds),
	})

	runDone := make(chan error, 1)
	go func() { runDone <- a.sess.Run(ctx) }()

	loadCtx, loadCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := a.load(loadCtx, ""); err != nil {
		logger.Fatalf("initial load: %v", err)
	}
	loadCancel()
	if ident != nil {
		ident.OnChange(a.switchUser)
	}

	wsSrv := ws.NewServer(ws.Config{
		Session:       a.sess,
		Logger:        log.New(os.Stdout, "[ws] ", log.LstdFlags),
		TickInterval:  tune.TickInterval(),
		UserID:        a.ownerID,
		ActsPerSecond: *actRate,
		ActBurst:      *actBurst,
	})

	enableAdminHTTP := envBool("TF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	if !enableAdminHTTP {
		logger.Printf("admin endpoints disabled (TF_ENABLE_ADMIN_HTTP=false)")
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(a, wsSrv, httpOptions{EnableAdmin: enableAdminHTTP}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (tick=%s autosave=%s slot=%d)", *addr, tune.TickInterval(), tune.AutoSaveInterval(), tune.SaveSlot)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	cancel()
	<-runDone
	shutdown(a, eventLog, logger)
}

// shutdown saves the final state and drains the event sinks in order.
func shutdown(a *app, eventLog *persistlog.EventLogger, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.sess.SaveNow(ctx); err != nil {
		logger.Printf("final save: %v", err)
	}
	_ = a.events.Close()
	_ = eventLog.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
	logger.Printf("shutdown complete")
}
