package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abceng/pressline/server/internal/alerts"
	"github.com/abceng/pressline/server/internal/api"
	"github.com/abceng/pressline/server/internal/auth"
	"github.com/abceng/pressline/server/internal/config"
	"github.com/abceng/pressline/server/internal/ingest"
	"github.com/abceng/pressline/server/internal/metrics"
	"github.com/abceng/pressline/server/internal/store"
	"github.com/abceng/pressline/server/internal/watch"
	"github.com/abceng/pressline/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve dashboard static files from this directory (e.g. ui/dist); leave empty to disable")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("pressline-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"cache_ttl", cfg.Server.Cache.TTL,
		"input_path", cfg.Input.Path,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Report memo with background TTL eviction.
	st := store.New(cfg.Server.Cache.TTL, ingest.Compute(cfg.Input.Options()))
	go st.Run(ctx)

	// Alerts engine evaluates rules on every ingested report.
	alertEngine := alerts.New(cfg.Alerts)

	// WebSocket hub pushes new reports and re-sends the latest on a ticker.
	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	svc := ingest.New(st)
	svc.OnReport(func(source string, e *store.Entry) { alertEngine.Evaluate(source, e.ID, e.Result) })
	svc.OnReport(hub.Publish)

	// Hot reload applies alert rule and webhook changes. Other settings need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			alertEngine.SetRules(next.Alerts)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	if cfg.Input.Path != "" {
		if _, _, err := svc.IngestFile(ctx, cfg.Input.Path); err != nil {
			slog.Error("initial ingest failed", "path", cfg.Input.Path, "err", err)
		}
		if cfg.Input.Watch {
			go func() {
				err := watch.File(ctx, cfg.Input.Path, func() {
					if _, _, err := svc.IngestFile(ctx, cfg.Input.Path); err != nil {
						slog.Error("re-ingest failed", "path", cfg.Input.Path, "err", err)
					}
				})
				if err != nil {
					slog.Warn("input watch disabled", "path", cfg.Input.Path, "err", err)
				}
			}()
		}
	}

	requireKey := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	// Combined HTTP server: REST API, WebSocket hub and /metrics on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, svc, alertEngine, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Middleware:     []func(http.Handler) http.Handler{requireKey},
	}))
	httpMux.Handle("/ws/stream", requireKey(hub))
	httpMux.Handle("/metrics", metrics.Handler(st,
		metrics.Gauge{Name: "ws_clients", Help: "Connected WebSocket clients.", Value: func() float64 { return float64(hub.Count()) }},
		metrics.Gauge{Name: "alerts_firing", Help: "Alerts currently firing.", Value: func() float64 { return float64(alertEngine.FiringCount()) }},
	))

	// Optional: serve a pre-built dashboard from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("pressline-server shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
