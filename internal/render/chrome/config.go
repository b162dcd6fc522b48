package chrome

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

const poolSizeAuto = "auto"

// Config holds browser launch and pool settings
type Config struct {
	PoolSize        string // "auto" or integer string
	ExecPath        string // empty: look up an installed Chrome/Chromium
	AutoDownload    bool   // download Chromium when nothing is installed
	NoSandbox       bool
	ShutdownTimeout time.Duration
}

// DefaultConfig is used in tests and by the CLI
func DefaultConfig() *Config {
	return &Config{
		PoolSize:        poolSizeAuto,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PoolSize != poolSizeAuto {
		size, err := strconv.Atoi(c.PoolSize)
		if err != nil {
			return fmt.Errorf("pool size must be 'auto' or valid integer")
		}
		if size <= 0 {
			return fmt.Errorf("pool size must be positive")
		}
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	return nil
}

// CalculatePoolSize returns the number of concurrent renders allowed.
// Each render owns a whole browser process, so "auto" sizes by RAM:
// (total RAM - 2GB) / 500MB, clamped to [2, 50].
func (c *Config) CalculatePoolSize() int {
	if c.PoolSize != poolSizeAuto {
		if size, err := strconv.Atoi(c.PoolSize); err == nil && size > 0 {
			return size
		}
	}

	var totalRAM int64 = 8 * 1024 * 1024 * 1024 // fallback when memory cannot be read
	if v, err := mem.VirtualMemory(); err == nil {
		totalRAM = int64(v.Total)
	}

	return autoPoolSize(totalRAM)
}

func autoPoolSize(totalRAM int64) int {
	const (
		reserved    = int64(2 * 1024 * 1024 * 1024)
		perInstance = int64(500 * 1024 * 1024)
	)

	size := int((totalRAM - reserved) / perInstance)
	if size < 2 {
		size = 2
	}
	if size > 50 {
		size = 50
	}
	return size
}
