package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/pkg/fileserver"
	"github.com/gatehouse-dev/gatehouse/pkg/gate"
	"github.com/gatehouse-dev/gatehouse/pkg/middleware"
	"github.com/gatehouse-dev/gatehouse/pkg/server"
	"github.com/gatehouse-dev/gatehouse/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the server with the configuration from gatehouse.json.

Examples:
  gatehouse serve
  gatehouse serve --config /etc/gatehouse/gatehouse.json
  gatehouse serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to the configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from gatehouse.json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runServe(configPath string, port int, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	printBanner()
	fmt.Println()

	resolver := fileserver.NewResolver(fileserver.Config{
		Root:               cfg.ServedFilesDir,
		RootMap:            asRules(cfg.ServedFilesDirMap),
		Redirects:          asRules(cfg.RedirectMap),
		Aliases:            asRules(cfg.URIMap),
		CacheControlRules:  asRules(cfg.CacheControlMap),
		CacheBust:          asPatterns(cfg.CacheBust),
		SSI:                asPatterns(cfg.NeedsSSIParsing),
		NotFoundFile:       cfg.Error404File,
		DefaultLanguage:    cfg.DefaultLanguage,
		CacheEnabled:       cfg.MemCacheEnabled,
		MaxCacheEntryBytes: cfg.MemCacheMaxSizeMB << 20,
		Logger:             log,
	})

	ws, err := server.New(&server.Config{
		ReadLimit:       cfg.WebSocket.ReadLimitBytes,
		QueueCapacity:   cfg.WebSocket.QueueCapacity,
		IdleTimeout:     time.Duration(cfg.WebSocket.IdleTimeoutSeconds) * time.Second,
		DownloadTimeout: time.Duration(cfg.WebSocket.DownloadTimeoutSeconds) * time.Second,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go ws.Run(ctx)

	var fileHandler http.Handler = fileserver.NewHandler(resolver, fileserver.HandlerConfig{
		Host:            cfg.Hostname,
		AllowedOrigins:  asOriginRules(cfg.AllowedOrigins),
		PostEndpoints:   cfg.PostEndpoints,
		DeleteEndpoints: cfg.DeleteEndpoints,
		MaxBodyBytes:    cfg.MaxBodyMB << 20,
		Logger:          log,
	})

	if cfg.GatingEnabled() {
		db, err := sql.Open("sqlite", cfg.Gatekeepr.Database)
		if err != nil {
			return fmt.Errorf("open gatekeepr database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		store := gate.NewStore(db)
		if err := store.CreateTables(ctx); err != nil {
			return fmt.Errorf("prepare gatekeepr database: %w", err)
		}

		g := gate.New(gate.Config{
			Host:           cfg.Hostname,
			GoogleClientID: cfg.Gatekeepr.GoogleClientID,
			Areas:          asAreas(cfg.Gatekeepr.GatedAreas),
			Root:           cfg.ServedFilesDir,
			Version:        resolver.Version(),
			Logger:         log,
		}, store)
		fileHandler = g.Middleware(fileHandler)
		log.Info("gating enabled", "areas", len(cfg.Gatekeepr.GatedAreas))
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus())
	r.Use(middleware.OpenTelemetry())

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/ws", ws.HandleWebSocket)
	r.Get("/downloads/*", ws.HandleDownload)

	if cfg.UploadsEnabled() {
		store, err := uploadStore(ctx, cfg)
		if err != nil {
			return err
		}
		live := func(sessionID string) bool {
			_, ok := ws.Registry().GetBySession(sessionID)
			return ok
		}
		r.Handle("/uploads/*", upload.HandlerWithConfig(store, live, &upload.Config{
			MaxFileSize: cfg.Uploads.MaxFileSizeMB << 20,
			Logger:      log,
		}))
		go uploadCleanupLoop(ctx, store, time.Duration(cfg.Uploads.ExpiryMinutes)*time.Minute, log)
	}

	r.Handle("/*", fileHandler)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "root", cfg.ServedFilesDir)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		ws.Shutdown()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	ws.Shutdown()
	return nil
}

// uploadStore builds the configured storage backend: S3 when a bucket
// is set, local disk otherwise.
func uploadStore(ctx context.Context, cfg *config.Config) (upload.Store, error) {
	if cfg.Uploads.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return upload.NewS3Store(client, cfg.Uploads.S3Bucket, cfg.Uploads.S3Prefix,
			cfg.Uploads.MaxFileSizeMB<<20), nil
	}
	return upload.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxFileSizeMB<<20)
}

// uploadCleanupLoop periodically removes expired uploads.
func uploadCleanupLoop(ctx context.Context, store upload.Store, maxAge time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, maxAge); err != nil {
				log.Warn("upload cleanup", "error", err)
			}
		}
	}
}

func asRules(entries []config.MapEntry) []fileserver.Rule {
	rules := make([]fileserver.Rule, len(entries))
	for i, e := range entries {
		rules[i] = fileserver.Rule{Pattern: e.Pattern, Value: e.Value}
	}
	return rules
}

func asPatterns(patterns []string) []fileserver.Rule {
	rules := make([]fileserver.Rule, len(patterns))
	for i, p := range patterns {
		rules[i] = fileserver.Rule{Pattern: p}
	}
	return rules
}

func asOriginRules(entries []config.OriginEntry) []fileserver.OriginRule {
	rules := make([]fileserver.OriginRule, len(entries))
	for i, e := range entries {
		rules[i] = fileserver.OriginRule{Dest: e.Dest, Origin: e.Origin}
	}
	return rules
}

func asAreas(areas []config.GatedArea) []gate.Area {
	out := make([]gate.Area, len(areas))
	for i, a := range areas {
		out[i] = gate.Area{
			ID:     a.ID,
			Name:   a.Name,
			Prefix: a.Prefix,
			Image:  a.Image,
			Home:   a.Home,
			Terms:  a.Terms,
		}
	}
	return out
}
