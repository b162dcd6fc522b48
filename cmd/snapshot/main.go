package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/configtypes"
	logutil "github.com/telewebsaver/engine/internal/common/logger"
	"github.com/telewebsaver/engine/internal/common/urlutil"
	"github.com/telewebsaver/engine/internal/render/chrome"
	"github.com/telewebsaver/engine/internal/render/snapshot"
)

func main() {
	targetURL := flag.String("url", "", "Page to capture (required)")
	outDir := flag.String("out", ".", "Directory the PDF is written to")
	noSandbox := flag.Bool("no-sandbox", false, "Run Chrome without its sandbox (needed as root in containers)")
	execPath := flag.String("chrome", "", "Path to the Chrome/Chromium executable")
	autoDownload := flag.Bool("auto-download", false, "Download Chromium when no browser is installed")
	timeout := flag.Duration("timeout", 90*time.Second, "Hard limit for the whole capture")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *targetURL == "" {
		fmt.Fprintln(os.Stderr, "usage: snapshot -url <url> [-out dir] [-no-sandbox] [-chrome path] [-auto-download]")
		os.Exit(2)
	}

	logCfg := configtypes.LogConfig{
		Level:   configtypes.LogLevelInfo,
		Console: configtypes.ConsoleLogConfig{Enabled: true, Format: configtypes.LogFormatConsole},
	}
	if *verbose {
		logCfg.Level = configtypes.LogLevelDebug
	}
	dynamicLogger, err := logutil.NewLogger(logCfg)
	if err != nil {
		panic(err)
	}
	logger := dynamicLogger.Logger
	defer func() { _ = logger.Sync() }()

	if err := run(*targetURL, *outDir, *timeout, &chrome.Config{
		PoolSize:        "1",
		ExecPath:        *execPath,
		AutoDownload:    *autoDownload,
		NoSandbox:       *noSandbox,
		ShutdownTimeout: 30 * time.Second,
	}, logger); err != nil {
		logger.Error("Snapshot failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(rawURL, outDir string, timeout time.Duration, chromeConfig *chrome.Config, logger *zap.Logger) error {
	// Local use: private addresses are allowed
	u, err := urlutil.ValidateTargetURL(rawURL, false)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execPath, err := chrome.ResolveExecPath(ctx, chromeConfig, logger)
	if err != nil {
		return err
	}

	renderer, err := snapshot.NewRenderer(chrome.NewEngine(execPath, chromeConfig, logger), snapshot.DefaultConfig(), logger)
	if err != nil {
		return err
	}

	artifact, err := renderer.Render(ctx, snapshot.SnapshotRequest{URL: u.String()})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("hard timeout exceeded (%v): %w", timeout, err)
		}
		return err
	}
	defer os.RemoveAll(artifact.Dir)

	dest := filepath.Join(outDir, artifact.Filename)
	if err := moveFile(artifact.Path, dest); err != nil {
		return fmt.Errorf("move pdf to %s: %w", dest, err)
	}

	logger.Info("Snapshot saved",
		zap.String("path", dest),
		zap.String("title", artifact.Title),
		zap.Int64("pdf_bytes", artifact.Size),
		zap.Duration("duration", artifact.Duration))
	return nil
}

// moveFile renames src to dst, copying when they are on different filesystems
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst. A partially written dst is removed on failure.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
