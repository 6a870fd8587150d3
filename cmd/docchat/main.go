package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	embgemini "docchat/internal/embedding/gemini"
	"docchat/internal/extract"
	gengemini "docchat/internal/generation/gemini"
	"docchat/internal/server"
	"docchat/internal/service"
	"docchat/internal/tui"
	"docchat/internal/vectorstore/local"
	"docchat/internal/vectorstore/pinecone"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	serve := flag.Bool("serve", false, "Run the HTTP API server")
	flag.Parse()
	inputs := flag.Args()
	if !*serve && len(inputs) == 0 {
		fmt.Println("Usage: docchat [--config=config.yaml] --serve")
		fmt.Println("       docchat [--config=config.yaml] document.pdf")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	apiKey := os.Getenv(cfg.Gemini.APIKeyEnv)
	if apiKey == "" {
		log.Fatalf("missing Gemini API key in env %s", cfg.Gemini.APIKeyEnv)
	}

	// Assemble components
	embProvider, err := embgemini.NewEmbedder(ctx, apiKey, cfg.Gemini.EmbeddingModel)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	defer embProvider.Close()

	gen, err := gengemini.NewGenerator(ctx, apiKey, cfg.Gemini.GenerationModel)
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}
	defer gen.Close()

	var store domain.VectorStore
	switch cfg.VectorStore.Type {
	case "local", "":
		path := ""
		if cfg.VectorStore.Local != nil {
			path = cfg.VectorStore.Local.Path
		}
		store, err = local.NewStore(path)
		if err != nil {
			log.Fatalf("local store init failed: %v", err)
		}
	case "pinecone":
		pc := cfg.VectorStore.Pinecone
		if pc == nil || pc.Host == "" {
			log.Fatalf("pinecone config missing")
		}
		key := os.Getenv(pc.APIKeyEnv)
		if key == "" {
			log.Fatalf("missing Pinecone API key in env %s", pc.APIKeyEnv)
		}
		store = pinecone.NewStore(pinecone.Config{
			Host:      pc.Host,
			APIKey:    key,
			Namespace: pc.Namespace,
			Timeout:   time.Duration(pc.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	pipe := service.NewPipeline(
		extract.NewPDFExtractor(),
		chunker.NewWindowChunker(cfg.Chunker.MaxChunkLen),
		embedding.NewClient(embProvider, logger),
		store,
		gen,
		logger,
	)

	if *serve {
		token := os.Getenv(cfg.Server.APITokenEnv)
		if token == "" {
			log.Fatalf("missing API token in env %s", cfg.Server.APITokenEnv)
		}
		e := server.New(pipe, token, cfg.Ask.TopK)
		log.Printf("listening on %s", cfg.Server.Listen)
		if err := e.Start(cfg.Server.Listen); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Local chat: ingest the given PDF into a throwaway session and
	// open the terminal chat.
	path := inputs[0]
	session := fmt.Sprintf("chat-%d", time.Now().UnixNano())
	n, err := pipe.Ingest(ctx, path, filepath.Base(path), session)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	m := tui.New(pipe, session, filepath.Base(path), n, cfg.Ask.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
