package main

import (
	"context"
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

	"github.com/makemyrecipe/makemyrecipe/internal/anthropic"
	"github.com/makemyrecipe/makemyrecipe/internal/api"
	"github.com/makemyrecipe/makemyrecipe/internal/assistant"
	"github.com/makemyrecipe/makemyrecipe/internal/chat"
	"github.com/makemyrecipe/makemyrecipe/internal/config"
	"github.com/makemyrecipe/makemyrecipe/internal/conversation"
	"github.com/makemyrecipe/makemyrecipe/internal/recipe"
	"github.com/makemyrecipe/makemyrecipe/internal/recipestore"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the makemyrecipe server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running makemyrecipe server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show makemyrecipe system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "makemyrecipe.pid")
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
	fmt.Fprintf(os.Stderr, "makemyrecipe version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("makemyrecipe is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("makemyrecipe is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open conversation storage and warm the cache.
	printStep("Opening conversation storage")
	convStore, err := conversation.NewStore(filepath.Join(cfg.Storage.DataDir, "conversations"))
	if err != nil {
		return fmt.Errorf("opening conversation storage: %w", err)
	}
	conversations := conversation.NewService(convStore)
	if err := conversations.Preload(ctx); err != nil {
		return fmt.Errorf("preloading conversations: %w", err)
	}

	// Open saved recipes database.
	saved, err := recipestore.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening recipe storage: %w", err)
	}
	defer func() {
		if err := saved.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing recipe storage: %v\n", err)
		}
	}()

	// Build the assistant pipeline.
	client := anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	limiter := anthropic.NewRateLimiter(cfg.Anthropic.RateLimitRPM)
	asst := assistant.New(client, limiter, cfg.Anthropic.MaxTokens, cfg.Anthropic.Temperature)
	recipes := recipe.NewService(asst)
	chatSvc := chat.NewService(conversations, asst, cfg.Chat.MaxHistory, cfg.Anthropic.EnableWebSearch)

	// Build HTTP server.
	handler := api.NewAppHandler(api.AppDeps{
		Chat:          chatSvc,
		Recipes:       recipes,
		Conversations: conversations,
		Saved:         saved,
	})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Recipes:       recipes,
		Conversations: conversations,
		Saved:         saved,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "makemyrecipe listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
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
		printError("makemyrecipe is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop makemyrecipe (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to makemyrecipe (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.Anthropic.Model)
	printStatus("Web search", "%v", cfg.Anthropic.EnableWebSearch)
	printStatus("Rate limit", "%d calls/min", cfg.Anthropic.RateLimitRPM)

	if running {
		statsResp, err := client.Get(serverURL + "/storage/stats")
		if err == nil {
			var stats conversation.StorageStats
			if decodeJSON(statsResp, &stats) == nil {
				printStatus("Conversations", "%d (%d messages)", stats.TotalConversations, stats.TotalMessages)
				printStatus("Backups", "%d", stats.BackupCount)
				if stats.CorruptedFiles > 0 {
					printWarning("%d corrupted conversation files", stats.CorruptedFiles)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
