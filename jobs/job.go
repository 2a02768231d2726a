// Package jobs queues conversion jobs, runs them on a dynamically scaled
// worker pool and keeps their results until retrieved.
package jobs

import "time"

// Type names a conversion.
type Type string

const (
	TypeSVG        Type = "svg"
	TypeSTL        Type = "stl"
	Type3MF        Type = "3mf"
	TypeBacked3MF  Type = "backed_3mf"
	TypeStacked3MF Type = "stacked_3mf"
)

// Meta carries conversion parameters. Pointer fields distinguish an absent
// key from a zero value.
type Meta struct {
	Filename       *string  `json:"filename,omitempty"`
	X              *float64 `json:"x,omitempty"`
	Y              *float64 `json:"y,omitempty"`
	Z              *float64 `json:"z,omitempty"`
	BlackThickness *float64 `json:"blackThickness,omitempty"`
	Colours        *int     `json:"colours,omitempty"`
	Reduce         *string  `json:"reduce,omitempty"`
	MinIsland      *int     `json:"minIsland,omitempty"`
}

// Has reports whether the named meta key is present.
func (m *Meta) Has(key string) bool {
	if m == nil {
		return false
	}
	switch key {
	case "filename":
		return m.Filename != nil
	case "x":
		return m.X != nil
	case "y":
		return m.Y != nil
	case "z":
		return m.Z != nil
	case "blackThickness":
		return m.BlackThickness != nil
	case "colours":
		return m.Colours != nil
	case "reduce":
		return m.Reduce != nil
	case "minIsland":
		return m.MinIsland != nil
	}
	return false
}

// Job is one submitted conversion. Files are base64-encoded images.
// A job is immutable once queued.
type Job struct {
	Type  Type     `json:"type"`
	Meta  *Meta    `json:"meta"`
	Files []string `json:"files"`

	submitted time.Time
}

// Filename returns meta.filename, or "" when absent.
func (j *Job) Filename() string {
	if j == nil || j.Meta == nil || j.Meta.Filename == nil {
		return ""
	}
	return *j.Meta.Filename
}

// Result is the outcome of a job. Vector results carry Text, model results
// carry File.
type Result struct {
	OK       bool   `json:"ok"`
	File     []byte `json:"file,omitempty"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// Summary is the introspection view of a stored result.
type Summary struct {
	OK       bool   `json:"ok"`
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// Summary returns the result without its payload.
func (r Result) Summary() Summary {
	return Summary{OK: r.OK, Filename: r.Filename, Error: r.Error}
}

// Payload returns the downloadable bytes of the result.
func (r Result) Payload() []byte {
	if r.File != nil {
		return r.File
	}
	return []byte(r.Text)
}

func float(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func integer(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
