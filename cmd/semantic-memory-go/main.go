package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/database"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/embeddings"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/memory"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/server"
)

var (
	libsqlURL   = flag.String("libsql-url", "", "libSQL database URL (default: file:./semantic-memory.db)")
	authToken   = flag.String("auth-token", "", "Authentication token for remote databases")
	transport   = flag.String("transport", "stdio", "Transport to use: stdio or sse")
	addr        = flag.String("addr", ":8080", "Address to listen on when using SSE transport")
	sseEndpoint = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, closing server...")
		cancel()
	}()

	// Initialize database configuration
	config := database.NewConfig()

	// Initialize metrics (noop if disabled)
	metrics.InitFromEnv()

	// Override with command line flags if provided
	if *libsqlURL != "" {
		config.URL = *libsqlURL
	}
	if *authToken != "" {
		config.AuthToken = *authToken
	}

	db, err := database.NewManager(config)
	if err != nil {
		log.Fatalf("Failed to create database manager: %v", err)
	}

	provider := embeddings.NewFromEnv()
	if provider != nil {
		provider = embeddings.WrapToDims(provider, config.EmbeddingDims, "pad_or_truncate")
	} else {
		log.Println("No embeddings provider configured, running keyword-only retrieval")
	}

	storeCfg := memory.ConfigFromEnv()
	storeCfg.EmbeddingDims = config.EmbeddingDims
	cache := embeddings.NewCache(provider, storeCfg.CacheTTL, storeCfg.CacheSize)

	store, err := memory.New(ctx, storeCfg, db, cache)
	if err != nil {
		db.Close()
		log.Fatalf("Failed to initialize memory store: %v", err)
	}
	store.Start()
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing memory store: %v", err)
		}
	}()

	// Create MCP server
	mcpServer := server.NewMCPServer(store)

	// Run the server with selected transport
	log.Println("Starting semantic memory server...")
	switch *transport {
	case "stdio":
		go func() {
			if err := mcpServer.Run(ctx); err != nil {
				log.Printf("Server error: %v", err)
			}
		}()
	case "sse":
		go func() {
			if err := mcpServer.RunSSE(ctx, *addr, *sseEndpoint); err != nil {
				log.Printf("SSE server error: %v", err)
			}
		}()
	default:
		log.Fatalf("unknown transport: %s (expected: stdio or sse)", *transport)
	}

	<-ctx.Done()

	log.Println("Server stopped")
}
