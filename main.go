// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"huddle/internal/app"
	"huddle/internal/config"
	"huddle/internal/util"
)

var (
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Huddle v%s\n", appVersion)
		return
	}

	if *showHelp {
		showUsage()
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: missing peer directory")
		fmt.Fprintln(os.Stderr, "Usage: huddle <peer-directory>")
		os.Exit(1)
	}

	runPeer(args[0])
}

func runPeer(peerDirArg string) {
	absDir, err := filepath.Abs(peerDirArg)
	if err != nil {
		log.Fatalf("Invalid peer directory: %v", err)
	}

	if stat, err := os.Stat(absDir); err != nil || !stat.IsDir() {
		log.Fatalf("Peer directory does not exist: %s", absDir)
	}

	if _, err := util.ValidatePeerName(filepath.Base(absDir)); err != nil {
		log.Fatalf("Invalid peer directory name: %v", err)
	}

	cfgPath := filepath.Join(absDir, "huddle.json")
	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if created {
		fmt.Printf("Created default config: %s\n", cfgPath)
	}

	printPeerBanner(absDir, cfgPath, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := app.Run(ctx, app.Options{
		PeerDir: absDir,
		CfgPath: cfgPath,
		Cfg:     cfg,
	}); err != nil {
		log.Fatalf("Peer failed: %v", err)
	}
}

func showUsage() {
	fmt.Println("Huddle - LAN group chat with call indicators")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  huddle <directory>     Run a peer from the specified directory")
	fmt.Println()
	fmt.Println("  The directory holds the peer's identity key, database, and")
	fmt.Println("  huddle.json configuration. A default config is created on")
	fmt.Println("  first run. Different folder = different peer.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h        Show this help message")
	fmt.Println("  -version  Show version information")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  huddle ./peers/alice")
	fmt.Println("  huddle ./peers/bob")
}

func printPeerBanner(peerDir, cfgPath string, cfg config.Config) {
	fmt.Println("╔════════════════════════════════════════════════════════╗")
	fmt.Println("║                   Huddle Peer Runner                   ║")
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Peer Directory: %s\n", peerDir)
	fmt.Printf("Config File:    %s\n", cfgPath)
	if cfg.Profile.Name != "" {
		fmt.Printf("Display Name:   %s\n", cfg.Profile.Name)
	}
	fmt.Println()

	if cfg.Viewer.HTTPAddr != "" {
		viewerURL := cfg.Viewer.HTTPAddr
		if viewerURL[0] == ':' {
			viewerURL = "http://127.0.0.1" + viewerURL
		}
		fmt.Printf("🌐 Viewer:  %s\n", viewerURL)
		fmt.Println()
	}

	fmt.Println("Starting peer... (Press Ctrl+C to stop)")
	fmt.Println("────────────────────────────────────────────────────────")
	fmt.Println()
}
