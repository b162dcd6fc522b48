package chrome

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// ResolveExecPath picks the browser binary: the configured path, then an installed
// Chrome/Chromium, then (with AutoDownload) a Chromium fetched into rod's cache.
func ResolveExecPath(ctx context.Context, cfg *Config, logger *zap.Logger) (string, error) {
	if cfg.ExecPath != "" {
		if _, err := os.Stat(cfg.ExecPath); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrBrowserNotFound, cfg.ExecPath, err)
		}
		return cfg.ExecPath, nil
	}

	if path, found := launcher.LookPath(); found {
		logger.Debug("Using installed browser", zap.String("exec_path", path))
		return path, nil
	}

	if !cfg.AutoDownload {
		return "", fmt.Errorf("%w: install Chrome/Chromium, set chrome.exec_path or enable chrome.auto_download", ErrBrowserNotFound)
	}

	logger.Info("No browser installed, downloading Chromium")

	b := launcher.NewBrowser()
	b.Context = ctx
	b.Logger = printlnLogger{logger.Sugar()}

	path, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}

	logger.Info("Chromium downloaded", zap.String("exec_path", path))
	return path, nil
}

// printlnLogger routes rod's download progress into zap
type printlnLogger struct {
	s *zap.SugaredLogger
}

func (l printlnLogger) Println(vs ...interface{}) {
	l.s.Debugln(vs...)
}
