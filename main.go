// Command sitelens runs the website intelligence API server, or a one-shot
// analysis when -url is given.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/sitelens/internal/ai"
	"github.com/raysh454/sitelens/internal/app"
	"github.com/raysh454/sitelens/internal/cache"
	"github.com/raysh454/sitelens/internal/cli"
	"github.com/raysh454/sitelens/internal/config"
	"github.com/raysh454/sitelens/internal/history"
	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/server"
	"github.com/raysh454/sitelens/internal/sources"
	"github.com/raysh454/sitelens/internal/webclient"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parsing arguments: %v", err)
	}

	cfg := config.Load()
	if args.Listen != "" {
		cfg.Server.ListenAddr = args.Listen
	}
	if args.Backend != "" {
		cfg.Server.WebClientBackend = args.Backend
	}

	logger := logging.NewStdoutLogger("SiteLens")

	webclient.RegisterDefaultBackends()
	wc, err := webclient.New(webclient.Config{
		Backend: cfg.Server.WebClientBackend,
		Timeout: cfg.Sources.PageTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("creating web client: %v", err)
	}
	defer wc.Close()

	srcs := app.Sources{
		Page:    sources.NewPageClient(cfg.Sources, wc, logger),
		GeoIP:   sources.NewGeoIPClient(cfg.Sources, nil, logger),
		Speed:   sources.NewPageSpeedClient(cfg.Sources, nil, logger),
		Whois:   sources.NewWhoisClient(cfg.Sources, nil, logger),
		Traffic: sources.NewTrafficClient(logger),
		Tech:    sources.NewTechStackClient(logger),
		Status:  sources.NewStatusClient(cfg.Sources, nil, logger),
	}

	gateway := ai.NewGateway(cfg.AI, ai.NewChatClient(cfg.AI), logger, nil)
	store := cache.NewMemory(cfg.Cache.ReportTTL, time.Now)

	var hist *history.Store
	if root, err := expandPath(cfg.Server.StorageRoot); err != nil {
		logger.Warn("resolving storage root, history disabled",
			logging.Field{Key: "error", Value: err.Error()})
	} else if err := os.MkdirAll(root, 0o755); err != nil {
		logger.Warn("creating storage root, history disabled",
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		db, err := sql.Open("sqlite", filepath.Join(root, "sitelens.db"))
		if err != nil {
			log.Fatalf("opening history database: %v", err)
		}
		defer db.Close()

		hist, err = history.NewStore(db, logger)
		if err != nil {
			log.Fatalf("initializing history store: %v", err)
		}
	}

	orch := app.NewOrchestrator(store, srcs, gateway, historyOrNil(hist), logger)

	if args.URL != "" {
		runOnce(orch, args.URL, args.Refresh)
		return
	}

	srv := server.NewServer(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Logger:     logger,
	}, orch, srcs.Whois, gateway, hist)

	logger.Info("listening", logging.Field{Key: "addr", Value: cfg.Server.ListenAddr})
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runOnce(orch *app.Orchestrator, url string, refresh bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := orch.FullAnalysis(ctx, url, refresh)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encoding report: %v", err)
	}
	fmt.Println(string(out))
}

// historyOrNil avoids storing a typed-nil *history.Store in the History
// interface.
func historyOrNil(s *history.Store) app.History {
	if s == nil {
		return nil
	}
	return s
}

// expandPath resolves a leading ~ against the user's home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
