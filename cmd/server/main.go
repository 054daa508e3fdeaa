package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "dropzone.gg/internal/persistence/log"
	"dropzone.gg/internal/sim/arena"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
	"dropzone.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		maxPlayers = flag.Int("max_players", 10, "players per match before matchmaking opens another")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite match index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Printf("load catalogs: %v (using built-in defaults)", err)
		cat = catalogs.Defaults()
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Printf("load tuning: %v (using built-in defaults)", err)
		tune = tuning.Defaults()
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()
	reportLog := persistlog.NewReportLogger(*dataDir)
	defer reportLog.Close()

	index, err := openIndex(*disableDB, filepath.Join(*dataDir, "index.db"), *configDir, cat, tune, logger)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	defer index.Close()

	mgr := arena.NewManager(arena.Config{
		Tuning:     tune,
		Catalog:    cat,
		Logger:     logger,
		MaxPlayers: *maxPlayers,
		Events:     eventLog,
		Report: func(r *match.FinalReport) {
			if err := reportLog.WriteReport(r); err != nil {
				logger.Printf("write report %s: %v", r.MatchID, err)
			}
			index.RecordReport(r)
		},
	})

	wsServer := ws.NewServer(mgr, tune.HeartbeatTimeout(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/statusz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(mgr.Snapshot())
	})
	mux.HandleFunc("/v1/leaderboard", func(rw http.ResponseWriter, r *http.Request) {
		top, err := index.TopPlayers(r.Context(), 50)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(top)
	})
	mux.HandleFunc("/v1/ws", wsServer.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Printf("shutting down")
		shutdownCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
		mgr.Close()
	}()

	logger.Printf("listening on %s (items=%d digest=%s)", *addr, len(cat.Templates), cat.Digest[:12])
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("listen: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
