package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/adcraft-io/copygen/internal/api"
	"github.com/adcraft-io/copygen/internal/config"
	"github.com/adcraft-io/copygen/internal/indexer"
	"github.com/adcraft-io/copygen/internal/ingest"
	"github.com/adcraft-io/copygen/internal/llm"
	"github.com/adcraft-io/copygen/internal/parser"
	"github.com/adcraft-io/copygen/internal/pipeline"
	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
	"github.com/adcraft-io/copygen/internal/teams"
	"github.com/adcraft-io/copygen/internal/trends"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the copygen server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running copygen server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show copygen system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "copygen.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "copygen version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	logger := slog.Default()

	// Refuse to start a second instance.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("copygen is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("copygen is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check Ollama readiness and pull missing models.
	client := llm.New(cfg.LLM.BaseURL)
	if err := llm.EnsureReady(ctx, client, cfg.LLM.GenModel, cfg.LLM.EmbedModel, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Wire the generation pipeline.
	embedder := retrieval.NewEmbedder(client, cfg.LLM.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	retriever := retrieval.NewRetriever(embedder, vectorStore, logger, cfg.Retrieval.CandidateLimit, cfg.Retrieval.MinSimilarity)
	ix := indexer.New(store, vectorStore, embedder, logger)
	p := parser.New(cfg.Prompt.BrandTag, logger)
	generator := pipeline.NewGenerator(retriever, store, client, p, logger, pipeline.Options{
		GenModel:          cfg.LLM.GenModel,
		TopK:              cfg.Retrieval.TopK,
		MinCTR:            cfg.Retrieval.MinCTR,
		MinConversionRate: cfg.Retrieval.MinConversionRate,
	})
	teamTable := teams.Default()
	writer := ingest.NewWriter(store, teamTable, logger)
	analyzer := trends.NewAnalyzer(client, cfg.LLM.GenModel, logger)

	handler := api.NewAppHandler(api.AppDeps{
		Store:     store,
		Writer:    writer,
		Generator: generator,
		Indexer:   ix,
		Analyzer:  analyzer,
		Searcher:  retriever,
		Logger:    logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the incremental index worker.
	worker := indexer.NewWorker(store, ix, 500*time.Millisecond, logger)
	go worker.Run(ctx)

	// Start the MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     store,
		Writer:    writer,
		Generator: generator,
		Searcher:  retriever,
		Teams:     teamTable,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "copygen listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("copygen is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop copygen (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to copygen (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	httpClient := &http.Client{Timeout: 2 * time.Second}

	serverUp := false
	resp, err := httpClient.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			serverUp = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaClient := llm.New(cfg.LLM.BaseURL)
	if ollamaClient.IsRunning(context.Background()) {
		printStatus("Ollama", "running at %s", cfg.LLM.BaseURL)
	} else {
		printStatus("Ollama", "not running")
	}

	printStatus("Gen model", "%s", cfg.LLM.GenModel)
	printStatus("Embed model", "%s", cfg.LLM.EmbedModel)

	if serverUp {
		copiesResp, err := httpClient.Get(serverURL + "/api/copies?limit=500")
		if err == nil {
			var copies []json.RawMessage
			if json.NewDecoder(copiesResp.Body).Decode(&copies) == nil {
				printStatus("Copies", "%s", countLabel(len(copies), 500))
			}
			copiesResp.Body.Close()
		}
		trendsResp, err := httpClient.Get(serverURL + "/api/trends?limit=100")
		if err == nil {
			var records []json.RawMessage
			if json.NewDecoder(trendsResp.Body).Decode(&records) == nil {
				printStatus("Trends", "%s", countLabel(len(records), 100))
			}
			trendsResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
