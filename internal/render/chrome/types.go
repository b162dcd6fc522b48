package chrome

import "time"

// PoolStats is a point-in-time view of the render pool
type PoolStats struct {
	TotalSlots     int           `json:"total_slots"`
	AvailableSlots int           `json:"available_slots"`
	ActiveRenders  int           `json:"active_renders"`
	TotalRenders   int64         `json:"total_renders"`
	TotalRejected  int64         `json:"total_rejected"`
	ShuttingDown   bool          `json:"shutting_down"`
	Uptime         time.Duration `json:"uptime_ns"`
}
