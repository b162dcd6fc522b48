package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	StageNavigation = "navigation"
	StagePDF        = "pdf"
)

// A4 paper and its margins, inches
const (
	a4Width  = 8.27
	a4Height = 11.69
	a4Margin = 10 / 25.4
)

const tempDirPattern = "snapshot-*"

// Renderer captures pages to PDF. It is safe for concurrent use: every Render call
// gets its own session and temporary directory.
type Renderer struct {
	engine   Engine
	cfg      Config
	logger   *zap.Logger
	recorder StrategyRecorder
}

// Option customizes a Renderer
type Option func(*Renderer)

// WithRecorder reports strategy outcomes, typically to metrics
func WithRecorder(rec StrategyRecorder) Option {
	return func(r *Renderer) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRenderer validates cfg (after defaults) and binds it to engine
func NewRenderer(engine Engine, cfg Config, logger *zap.Logger, opts ...Option) (*Renderer, error) {
	if engine == nil {
		return nil, fmt.Errorf("browser engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot config: %w", err)
	}

	r := &Renderer{
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Config returns the effective configuration
func (r *Renderer) Config() Config {
	return r.cfg
}

// Render captures req.URL. On success the caller owns the returned artifact's Dir.
// Failures are *NavigationError or *RenderError and leave nothing on disk.
func (r *Renderer) Render(ctx context.Context, req SnapshotRequest) (*PdfArtifact, error) {
	if req.URL == "" {
		return nil, &NavigationError{URL: req.URL, Cause: ErrInvalidRequest}
	}

	start := time.Now()
	log := r.logger.With(zap.String("url", req.URL))
	if req.RequestID != "" {
		log = log.With(zap.String("request_id", req.RequestID))
	}

	dir, err := os.MkdirTemp(r.cfg.TempRoot, tempDirPattern)
	if err != nil {
		return nil, &RenderError{URL: req.URL, Cause: fmt.Errorf("failed to create temp dir: %w", err)}
	}
	keepDir := false
	defer func() {
		if keepDir {
			return
		}
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("Failed to remove temp dir", zap.String("dir", dir), zap.Error(rmErr))
		}
	}()

	sess, err := r.engine.Open(ctx, r.cfg.viewport())
	if err != nil {
		return nil, &NavigationError{URL: req.URL, Cause: fmt.Errorf("failed to open browser session: %w", err)}
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			log.Warn("Browser session teardown reported errors", zap.Error(closeErr))
		}
	}()

	_, navStrategy, err := runChain(ctx, log, r.recorder, StageNavigation, r.navigationStrategies(sess, req.URL))
	if err != nil {
		return nil, &NavigationError{URL: req.URL, Cause: err}
	}

	r.suppressConsent(ctx, sess, req.URL, log)
	r.stabilize(ctx, sess, log)

	title := readTitle(ctx, sess, r.cfg.ScriptTimeout, log)
	geometry := r.measureGeometry(ctx, sess, log)
	filename := SanitizeFilename(title)
	path := filepath.Join(dir, filename)

	size, format, err := runChain(ctx, log, r.recorder, StagePDF, r.pdfStrategies(sess, geometry, path))
	if err != nil {
		return nil, &RenderError{URL: req.URL, Cause: err}
	}

	keepDir = true
	artifact := &PdfArtifact{
		Path:       path,
		Filename:   filename,
		Dir:        dir,
		Title:      title,
		Geometry:   geometry,
		Navigation: navStrategy,
		Format:     format,
		Size:       size,
		Duration:   time.Since(start),
	}

	log.Info("Snapshot rendered",
		zap.String("filename", filename),
		zap.String("navigation", navStrategy),
		zap.String("format", format),
		zap.Stringer("geometry", geometry),
		zap.Int64("size", size),
		zap.Duration("duration", artifact.Duration))

	return artifact, nil
}

func (r *Renderer) navigationStrategies(sess Session, url string) []Strategy[struct{}] {
	navigate := func(event string) func(ctx context.Context) (struct{}, error) {
		return func(ctx context.Context) (struct{}, error) {
			return struct{}{}, sess.Navigate(ctx, url, event, r.cfg.NavigationTimeout)
		}
	}

	return []Strategy[struct{}]{
		{Name: "load", Run: navigate(EventLoad)},
		{Name: "domcontentloaded", Run: navigate(EventDOMContentLoaded)},
	}
}

func (r *Renderer) pdfStrategies(sess Session, geometry PageGeometry, path string) []Strategy[int64] {
	printTo := func(opts PDFOptions) func(ctx context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			data, err := sess.PrintPDF(ctx, opts)
			if err != nil {
				return 0, err
			}
			if len(data) == 0 {
				return 0, ErrEmptyPDF
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return 0, fmt.Errorf("failed to write pdf: %w", err)
			}
			return int64(len(data)), nil
		}
	}

	return []Strategy[int64]{
		{Name: "adaptive", Run: printTo(AdaptivePDFOptions(geometry))},
		{Name: "a4", Run: printTo(A4PDFOptions())},
	}
}

// AdaptivePDFOptions prints the whole content on one page of exactly the measured size
func AdaptivePDFOptions(g PageGeometry) PDFOptions {
	return PDFOptions{
		PaperWidth:      g.WidthInches(),
		PaperHeight:     g.HeightInches(),
		PrintBackground: true,
		PageRanges:      "1",
	}
}

// A4PDFOptions is the fixed-format fallback with 10mm margins
func A4PDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:      a4Width,
		PaperHeight:     a4Height,
		MarginTop:       a4Margin,
		MarginRight:     a4Margin,
		MarginBottom:    a4Margin,
		MarginLeft:      a4Margin,
		PrintBackground: true,
	}
}
