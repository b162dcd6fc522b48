package chrome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_CalculatePoolSize(t *testing.T) {
	config := DefaultConfig()

	// Test with explicit pool size
	config.PoolSize = "10"
	assert.Equal(t, 10, config.CalculatePoolSize())

	// Test with auto-sizing
	config.PoolSize = "auto"
	autoSize := config.CalculatePoolSize()
	assert.GreaterOrEqual(t, autoSize, 2, "Should have at least 2 slots")
	assert.LessOrEqual(t, autoSize, 50, "Should not exceed 50 slots")
}

func TestAutoPoolSize(t *testing.T) {
	const gb = int64(1024 * 1024 * 1024)

	tests := []struct {
		name     string
		totalRAM int64
		expected int
	}{
		{"tiny machine clamps to minimum", 1 * gb, 2},
		{"4GB", 4 * gb, 4},
		{"16GB", 16 * gb, 28},
		{"huge machine clamps to maximum", 256 * gb, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, autoPoolSize(tt.totalRAM))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		expectErr bool
	}{
		{
			name:      "valid config",
			modifyFn:  func(c *Config) {},
			expectErr: false,
		},
		{
			name: "explicit pool size",
			modifyFn: func(c *Config) {
				c.PoolSize = "3"
			},
			expectErr: false,
		},
		{
			name: "negative pool size",
			modifyFn: func(c *Config) {
				c.PoolSize = "-1"
			},
			expectErr: true,
		},
		{
			name: "non-numeric pool size",
			modifyFn: func(c *Config) {
				c.PoolSize = "many"
			},
			expectErr: true,
		},
		{
			name: "zero shutdown timeout",
			modifyFn: func(c *Config) {
				c.ShutdownTimeout = 0
			},
			expectErr: true,
		},
		{
			name: "custom shutdown timeout",
			modifyFn: func(c *Config) {
				c.ShutdownTimeout = time.Second
			},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyFn(config)

			err := config.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
