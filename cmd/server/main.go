package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tbuchner/raumplan/internal/api"
	"github.com/tbuchner/raumplan/internal/backend"
	"github.com/tbuchner/raumplan/internal/config"
	"github.com/tbuchner/raumplan/internal/database"
	"github.com/tbuchner/raumplan/internal/editor"
	"github.com/tbuchner/raumplan/internal/stats"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to the config file")
	flag.Parse()

	logger := log.New(os.Stderr, "[raumplan] ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgAccountRepository(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	collab, err := backend.NewHTTPCollaborator(cfg.Collaborator.BaseURL, cfg.Collaborator.Timeout, logger)
	if err != nil {
		logger.Fatal("collaborator:", err)
	}

	dispatcher := backend.NewDispatcher(logger, statsUpdater, cfg.Collaborator.Timeout, cfg.Collaborator.QueueSize)

	editorServer, err := editor.NewEditorServer(logger, statsUpdater, collab, dispatcher, editor.CanvasConfig{
		Width:         cfg.Canvas.Width,
		Height:        cfg.Canvas.Height,
		MinRoomSize:   cfg.Canvas.MinRoomSize,
		EdgeMargin:    cfg.Canvas.EdgeMargin,
		DrawThreshold: cfg.Canvas.DrawThreshold,
	})
	if err != nil {
		logger.Fatal("new editor server:", err)
	}

	srv := api.NewApp(mux, logger, editorServer, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	dispatcher.Run()
	defer dispatcher.Stop()

	go editorServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down editor server...")
	editorServer.Shutdown()

	logger.Println("shutdown complete")
}
