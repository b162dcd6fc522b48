package snapshot

import (
	"fmt"
	"time"
)

// Config holds the renderer limits and waits. Zero fields take the DefaultConfig value.
type Config struct {
	ViewportWidth  int
	ViewportHeight int
	DeviceScale    float64

	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int

	NavigationTimeout  time.Duration
	ConsentSettle      time.Duration
	NetworkIdleTimeout time.Duration
	FontsTimeout       time.Duration
	StabilizeSettle    time.Duration
	VisibleTimeout     time.Duration

	// ScriptTimeout bounds each consent step, the title read and the geometry read
	ScriptTimeout time.Duration

	// TempRoot is the parent of per-render directories; empty means os.TempDir()
	TempRoot string
}

// DefaultConfig returns the reference limits
func DefaultConfig() Config {
	return Config{
		ViewportWidth:      2560,
		ViewportHeight:     1440,
		DeviceScale:        2,
		MinWidth:           2560,
		MaxWidth:           8000,
		MinHeight:          1440,
		MaxHeight:          50000,
		NavigationTimeout:  30 * time.Second,
		ConsentSettle:      1 * time.Second,
		NetworkIdleTimeout: 5 * time.Second,
		FontsTimeout:       5 * time.Second,
		StabilizeSettle:    3 * time.Second,
		VisibleTimeout:     5 * time.Second,
		ScriptTimeout:      10 * time.Second,
	}
}

// WithDefaults returns a copy with every zero field replaced by its default
func (c Config) WithDefaults() Config {
	d := DefaultConfig()

	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setDur := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}

	setInt(&c.ViewportWidth, d.ViewportWidth)
	setInt(&c.ViewportHeight, d.ViewportHeight)
	setInt(&c.MinWidth, d.MinWidth)
	setInt(&c.MaxWidth, d.MaxWidth)
	setInt(&c.MinHeight, d.MinHeight)
	setInt(&c.MaxHeight, d.MaxHeight)
	if c.DeviceScale == 0 {
		c.DeviceScale = d.DeviceScale
	}

	setDur(&c.NavigationTimeout, d.NavigationTimeout)
	setDur(&c.ConsentSettle, d.ConsentSettle)
	setDur(&c.NetworkIdleTimeout, d.NetworkIdleTimeout)
	setDur(&c.FontsTimeout, d.FontsTimeout)
	setDur(&c.StabilizeSettle, d.StabilizeSettle)
	setDur(&c.VisibleTimeout, d.VisibleTimeout)
	setDur(&c.ScriptTimeout, d.ScriptTimeout)

	return c
}

func (c Config) Validate() error {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.DeviceScale <= 0 {
		return fmt.Errorf("device scale must be positive, got %v", c.DeviceScale)
	}
	if c.MinWidth <= 0 || c.MinWidth > c.MaxWidth {
		return fmt.Errorf("invalid width bounds [%d, %d]", c.MinWidth, c.MaxWidth)
	}
	if c.MinHeight <= 0 || c.MinHeight > c.MaxHeight {
		return fmt.Errorf("invalid height bounds [%d, %d]", c.MinHeight, c.MaxHeight)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("script timeout must be positive")
	}
	return nil
}

func (c Config) viewport() Viewport {
	return Viewport{
		Width:       c.ViewportWidth,
		Height:      c.ViewportHeight,
		DeviceScale: c.DeviceScale,
	}
}
