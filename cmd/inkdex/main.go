// Package main is the Inkdex CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/config"
	"github.com/inkhaven/inkdex/internal/corpus"
	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/server"
	"github.com/inkhaven/inkdex/internal/vectortable"
	"github.com/inkhaven/inkdex/internal/watcher"
	"github.com/inkhaven/inkdex/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/inkdex/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A local .env may carry the provider API key; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "delete-project":
		runDeleteProject()
	case "schema":
		runSchema()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("inkdex version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store    vectortable.Opener
	Provider embedding.Provider
	Corpus   *corpus.Corpus
}

func (c *Components) Close() {
	if c.Corpus != nil {
		_ = c.Corpus.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := vectortable.NewOpener(cfg.Storage.Engine, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var provider embedding.Provider
	if apiKey := cfg.Embedding.APIKey(); apiKey != "" {
		httpProvider, err := embedding.NewHTTPProvider(
			cfg.Embedding.BaseURL,
			apiKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.RequestTimeout(),
		)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		provider = httpProvider
	} else {
		// No API key: deterministic local vectors. Useful for tests and dry
		// runs, useless for real retrieval quality.
		logger.Warn("no embedding API key set, using mock provider",
			zap.String("env", cfg.Embedding.APIKeyEnv))
		provider = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	}
	provider = embedding.NewCachedProvider(provider, cfg.Embedding.CacheSize)

	c, err := corpus.New(store, provider, corpus.Options{
		Logger:           logger,
		MaxContentLength: cfg.Embedding.MaxContentLength,
		MaxLimit:         cfg.Search.MaxLimit,
		OverfetchFactor:  cfg.Search.OverfetchFactor,
	})
	if err != nil {
		_ = store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to initialize corpus: %w", err)
	}

	return &Components{Store: store, Provider: provider, Corpus: c}, nil
}

func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.Directory != "" {
		watchOpts := []watcher.Option{watcher.WithLogger(logger)}
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directory,
			cfg.Watch.Extensions,
			cfg.Watch.ProjectID,
			components.Corpus,
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Corpus, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kindFlag := fs.String("kind", "documents", "entity kind: documents, characters, or themes")
	id := fs.String("id", "", "record id (empty = generated)")
	title := fs.String("title", "", "document title (documents only)")
	projectID := fs.String("project", "", "project id")
	source := fs.String("source", "", "source label")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inkdex index [flags] <file>")
		os.Exit(1)
	}
	kind, err := corpus.ParseKind(*kindFlag)
	if err != nil {
		fmt.Printf("Invalid kind: %v\n", err)
		os.Exit(1)
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	var recordID string
	switch kind {
	case corpus.KindDocuments:
		recordID, err = components.Corpus.IndexDocument(ctx, &models.DocumentInput{
			ID:        *id,
			Title:     *title,
			Content:   string(data),
			ProjectID: *projectID,
			Source:    *source,
		})
	case corpus.KindCharacters:
		var input models.CharacterInput
		if err = json.Unmarshal(data, &input); err != nil {
			fmt.Printf("Character files must be JSON: %v\n", err)
			os.Exit(1)
		}
		if *id != "" {
			input.ID = *id
		}
		if *projectID != "" {
			input.ProjectID = *projectID
		}
		recordID, err = components.Corpus.IndexCharacter(ctx, &input)
	case corpus.KindThemes:
		var input models.ThemeInput
		if err = json.Unmarshal(data, &input); err != nil {
			fmt.Printf("Theme files must be JSON: %v\n", err)
			os.Exit(1)
		}
		if *id != "" {
			input.ID = *id
		}
		if *projectID != "" {
			input.ProjectID = *projectID
		}
		recordID, err = components.Corpus.IndexTheme(ctx, &input)
	}
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s: %s\n", kind, recordID)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kindFlag := fs.String("kind", "documents", "entity kind: documents, characters, or themes")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	projectID := fs.String("project", "", "restrict to one project")
	outputJSON := fs.Bool("json", false, "print results as JSON")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inkdex search [flags] <query>")
		os.Exit(1)
	}
	kind, err := corpus.ParseKind(*kindFlag)
	if err != nil {
		fmt.Printf("Invalid kind: %v\n", err)
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if *limit == 0 {
		*limit = cfg.Search.DefaultLimit
	}
	query := &models.SearchQuery{Query: queryStr, Limit: *limit}
	if *projectID != "" {
		query.Filter = &models.Filter{ProjectID: *projectID}
	}
	response, err := components.Corpus.Search(context.Background(), kind, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(response)
		return
	}
	if response.Total == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range response.Results {
		fmt.Printf("%d. [%s %.0f] %s\n", i+1, r.Relevance, r.Score, r.Record.ID)
		text := utils.TruncateRunes(strings.ReplaceAll(r.Record.Text, "\n", " "), 160)
		fmt.Printf("   %s\n", text)
	}
	fmt.Printf("\n%d result(s) in %dms\n", response.Total, response.QueryTime)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kindFlag := fs.String("kind", "documents", "entity kind: documents, characters, or themes")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inkdex delete [flags] <id>")
		os.Exit(1)
	}
	kind, err := corpus.ParseKind(*kindFlag)
	if err != nil {
		fmt.Printf("Invalid kind: %v\n", err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	id := fs.Arg(0)
	if err := components.Corpus.Delete(context.Background(), kind, id); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %s: %s\n", kind, id)
}

func runDeleteProject() {
	fs := flag.NewFlagSet("delete-project", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inkdex delete-project [flags] <project-id>")
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	projectID := fs.Arg(0)
	deleted, failures := components.Corpus.DeleteAllForProject(context.Background(), projectID)
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "Purge error: %v\n", f)
	}
	fmt.Printf("Deleted %d record(s) for project %s\n", deleted, projectID)
	if len(failures) > 0 {
		os.Exit(1)
	}
}

func runSchema() {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: inkdex schema [flags] <kind>")
		os.Exit(1)
	}
	kind, err := corpus.ParseKind(fs.Arg(0))
	if err != nil {
		fmt.Printf("Invalid kind: %v\n", err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	schema, err := components.Corpus.Schema(kind)
	if err != nil {
		fmt.Printf("Schema lookup failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(schema)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	counts, err := components.Corpus.Counts(context.Background())
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Engine:    %s\n", cfg.Storage.Engine)
	fmt.Printf("Database:  %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("Model:     %s (%d dims)\n", components.Provider.Model(), components.Provider.Dimensions())
	var total int64
	for _, kind := range corpus.Kinds() {
		fmt.Printf("%-11s %d\n", string(kind)+":", counts[kind])
		total += counts[kind]
	}
	fmt.Printf("Total:     %d\n", total)
}

func printUsage() {
	fmt.Println(`inkdex - semantic retrieval for fiction projects

Usage:
  inkdex server [flags]                  Start the HTTP server
  inkdex index [flags] <file>            Index a file as a document, character, or theme
  inkdex search [flags] <query>          Search one entity kind
  inkdex delete [flags] <id>             Delete one record
  inkdex delete-project [flags] <id>     Delete every record of a project
  inkdex schema <kind>                   Show a table's schema
  inkdex status                          Show table counts and configuration
  inkdex version                         Show version
  inkdex help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/inkdex/config.yaml)
  --kind string      Entity kind: documents, characters, or themes (default: documents)

Examples:
  inkdex server --debug
  inkdex index --title "Chapter 1" --project novel-1 chapter1.txt
  inkdex index --kind characters mara.json
  inkdex search --kind themes "loss and forgiveness"
  inkdex search --project novel-1 --limit 5 "the lighthouse"
  inkdex delete --kind characters char-mara
  inkdex delete-project novel-1
  inkdex schema documents
  inkdex status

The embedding API key is read from the environment (default variable
INKDEX_API_KEY, configurable via embedding.api_key_env). A .env file in the
working directory is loaded automatically. Without a key, a deterministic
mock provider is used.`)
}
