package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mesingh9719/docforge-sign/internal/config"
	"github.com/mesingh9719/docforge-sign/internal/pdfinfo"
	"github.com/mesingh9719/docforge-sign/internal/server"
	"github.com/mesingh9719/docforge-sign/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if version != "dev" {
		cfg.Version = version
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.IsDebug() {
		log.Printf("Configuration: host=%s port=%d datadir=%s maxupload=%d",
			cfg.Host, cfg.Port, cfg.DataDir, cfg.MaxUploadSize)
	}

	st, err := store.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	pdfService := pdfinfo.NewService(cfg.MaxUploadSize)

	srv, err := server.NewServer(cfg, st, pdfService)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

func printVersion() {
	fmt.Printf("docforge-sign %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}
