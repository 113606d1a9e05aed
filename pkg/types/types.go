package types

import "image"

// Status discriminates the outcome of processing a single file
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// CropMethod records which branch of the crop decision ladder produced a box
type CropMethod string

const (
	MethodAlreadySquare  CropMethod = "already_square"
	MethodSmartCentered  CropMethod = "smart_centered"
	MethodFallbackCenter CropMethod = "fallback_center"
	MethodSmartSaliency  CropMethod = "smart_saliency"
)

// Rect is an axis-aligned box with exclusive max edges, in pixel coordinates
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Width returns the horizontal extent of the box
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the vertical extent of the box
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Area returns the box area, zero for inverted boxes
func (r Rect) Area() int {
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the geometric center of the box
func (r Rect) Center() (float64, float64) {
	return float64(r.X0+r.X1) / 2.0, float64(r.Y0+r.Y1) / 2.0
}

// Image converts the box to an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X0, r.Y0, r.X1, r.Y1)
}

// CropDecision is the final square box in original-image coordinates
type CropDecision struct {
	Box    Rect       `json:"box"`
	Method CropMethod `json:"method"`
}

// ProcessResult is the immutable per-file outcome handed back to callers
type ProcessResult struct {
	InputPath  string     `json:"input_path"`
	OutputPath string     `json:"output_path"`
	Status     Status     `json:"status"`
	Message    string     `json:"message"`
	CropMethod CropMethod `json:"crop_method"`
}

// ProgressFunc receives one notification per completed file, in completion order
type ProgressFunc func(done, total int, result ProcessResult)
