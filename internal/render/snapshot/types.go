package snapshot

import "time"

// SnapshotRequest asks for a single page to be captured
type SnapshotRequest struct {
	URL       string
	RequestID string // log correlation only
}

// PageGeometry is the rendered content size in CSS pixels, always within the configured bounds
type PageGeometry struct {
	WidthPx  int `json:"width_px"`
	HeightPx int `json:"height_px"`
}

// PdfArtifact is a finished capture. The caller owns Dir and must remove it after delivery.
type PdfArtifact struct {
	Path     string
	Filename string
	Dir      string

	Title      string
	Geometry   PageGeometry
	Navigation string // navigation strategy that succeeded
	Format     string // pdf strategy that succeeded
	Size       int64
	Duration   time.Duration
}

// Viewport is the initial window of a session
type Viewport struct {
	Width       int
	Height      int
	DeviceScale float64
}

// Cookie is a name/value pair seeded for the page URL
type Cookie struct {
	Name  string
	Value string
}

// PDFOptions describes one print call. Sizes are inches.
type PDFOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginRight     float64
	MarginBottom    float64
	MarginLeft      float64
	PrintBackground bool
	PageRanges      string
}

// Lifecycle signals a page reports while loading
const (
	EventLoad             = "load"
	EventDOMContentLoaded = "DOMContentLoaded"
	EventNetworkIdle      = "networkIdle"
)
