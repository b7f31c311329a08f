package dataset

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind names the ingestion channel an entry came from.
type SourceKind string

const (
	SourceLocalPath    SourceKind = "local_path"
	SourceRemoteURL    SourceKind = "remote_url"
	SourceUploadedBlob SourceKind = "uploaded_blob"
	SourceDatabase     SourceKind = "database"
)

// Phase is the acquisition phase of an entry. Phases only move forward;
// Loaded and Failed are terminal.
type Phase int

const (
	PhasePending Phase = iota
	PhaseInProgress
	PhaseLoaded
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhasePending:    "pending",
	PhaseInProgress: "in_progress",
	PhaseLoaded:     "loaded",
	PhaseFailed:     "failed",
}

// String returns the snake_case name of the phase.
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == PhaseLoaded || p == PhaseFailed
}

// State is the acquisition state of an entry. TotalBytes is -1 when the
// source did not announce a length.
type State struct {
	Phase        Phase  `json:"phase"`
	BytesFetched int64  `json:"bytes_fetched,omitempty"`
	TotalBytes   int64  `json:"total_bytes,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Pending returns the initial state.
func Pending() State { return State{Phase: PhasePending, TotalBytes: -1} }

// InProgress returns a download state; total < 0 means unknown.
func InProgress(fetched, total int64) State {
	return State{Phase: PhaseInProgress, BytesFetched: fetched, TotalBytes: total}
}

// Loaded returns the successful terminal state.
func Loaded() State { return State{Phase: PhaseLoaded, TotalBytes: -1} }

// Failed returns the failed terminal state with a reason.
func Failed(reason string) State { return State{Phase: PhaseFailed, TotalBytes: -1, Reason: reason} }

// Progress returns fetched/total clamped to [0,1]. ok is false when the total
// size is unknown.
func (s State) Progress() (float64, bool) {
	if s.TotalBytes <= 0 {
		return 0, false
	}
	p := float64(s.BytesFetched) / float64(s.TotalBytes)
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return p, true
}

// RGBA is an 8-bit color with alpha.
type RGBA [4]uint8

// Hex returns the color as #rrggbbaa.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c[0], c[1], c[2], c[3])
}

// DefaultColor is the solid color used when no classification applies.
var DefaultColor = RGBA{0, 128, 255, 160}

// ColorMode selects between a fixed color and a colormap over a column.
type ColorMode int

const (
	ColorSolid ColorMode = iota
	ColorColormap
)

// MarshalText encodes the mode as "solid" or "colormap".
func (m ColorMode) MarshalText() ([]byte, error) {
	if m == ColorColormap {
		return []byte("colormap"), nil
	}
	return []byte("solid"), nil
}

// UnmarshalText decodes "solid" or "colormap".
func (m *ColorMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "solid", "":
		*m = ColorSolid
	case "colormap":
		*m = ColorColormap
	default:
		return fmt.Errorf("unknown color mode %q", string(b))
	}
	return nil
}

// ColorSpec is the color configuration of an entry.
type ColorSpec struct {
	Mode     ColorMode `json:"mode"`
	Solid    RGBA      `json:"solid"`
	Colormap string    `json:"colormap,omitempty"`
}

// PositionColumns names the latitude and longitude columns of a table.
type PositionColumns struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Config is the per-entry display configuration.
type Config struct {
	Visible              bool             `json:"visible"`
	Position             *PositionColumns `json:"position_columns,omitempty"`
	ClassificationColumn *string          `json:"classification_column,omitempty"`
	Color                ColorSpec        `json:"color"`
	PointRadius          float64          `json:"point_radius"`
}

// DefaultConfig returns the configuration new entries start with.
func DefaultConfig() Config {
	return Config{
		Visible:     true,
		Color:       ColorSpec{Mode: ColorColormap, Solid: DefaultColor, Colormap: "viridis"},
		PointRadius: 100,
	}
}

func (c Config) clone() Config {
	out := c
	if c.Position != nil {
		p := *c.Position
		out.Position = &p
	}
	if c.ClassificationColumn != nil {
		col := *c.ClassificationColumn
		out.ClassificationColumn = &col
	}
	return out
}

// Entry is one ingested dataset. Payload is nil until the entry is Loaded.
type Entry struct {
	ID        string     `json:"id"`
	Source    SourceKind `json:"source"`
	Name      string     `json:"name"`
	Origin    string     `json:"origin,omitempty"`
	State     State      `json:"state"`
	Config    Config     `json:"config"`
	Payload   *Payload   `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

func (e Entry) clone() Entry {
	out := e
	out.Config = e.Config.clone()
	return out
}

// Level is the severity of a Diagnostic.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Diagnostic is a per-entry note reported next to composed output.
type Diagnostic struct {
	Entry   string `json:"entry,omitempty"`
	Level   Level  `json:"level"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}
