package crop

import (
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle position of a crop session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateCommitting
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown crop state %q", text)
}

// Session is one interactive crop: a source image positioned behind the
// circular viewport by a zoom factor and a pan offset.
type Session struct {
	mu sync.Mutex

	id       string
	geometry Geometry
	quality  int

	state   State
	source  string
	ticket  uint64
	img     image.Image
	natural image.Point
	loadErr error

	zoom    float64
	offset  Offset
	panning bool
	anchor  Offset

	result *Result
}

// NewSession returns an idle session. A non-positive quality selects
// DefaultQuality.
func NewSession(id string, g Geometry, quality int) *Session {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Session{
		id:       id,
		geometry: g,
		quality:  quality,
		zoom:     MinZoom,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open starts (or restarts) the session with a new source image. Zoom and
// offset are reset and the session waits in StateLoading until Loaded is
// called with the returned ticket.
func (s *Session) Open(source string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticket++
	s.state = StateLoading
	s.source = source
	s.img = nil
	s.natural = image.Point{}
	s.loadErr = nil
	s.zoom = MinZoom
	s.offset = Offset{}
	s.panning = false
	s.anchor = Offset{}
	s.result = nil

	return s.ticket
}

// Loaded delivers the outcome of the image load started by Open. Deliveries
// for an older ticket, or after Cancel, are dropped and report false.
func (s *Session) Loaded(ticket uint64, img image.Image, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket != s.ticket || s.state != StateLoading {
		return false
	}
	if err == nil && (img == nil || img.Bounds().Empty()) {
		err = fmt.Errorf("%w: image has no pixels", ErrLoadFailed)
	}
	if err != nil {
		s.state = StateFailed
		s.loadErr = err
		return true
	}

	s.img = img
	s.natural = img.Bounds().Size()
	s.state = StateReady
	return true
}

// SetZoom stores z clamped to [MinZoom, MaxZoom]. The offset is not rescaled;
// it is re-clamped whenever it is read or updated.
func (s *Session) SetZoom(z float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return s.zoom, s.notReady("zoom")
	}
	s.zoom = ClampZoom(z)
	return s.zoom, nil
}

// BeginPan anchors a drag gesture at the pointer position.
func (s *Session) BeginPan(px, py float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return s.notReady("pan")
	}
	cur := ClampOffset(s.offset, s.zoom)
	s.anchor = Offset{X: px - cur.X, Y: py - cur.Y}
	s.panning = true
	return nil
}

// MovePan updates the offset to pointer minus anchor, clamped per axis.
func (s *Session) MovePan(px, py float64) (Offset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return s.currentOffset(), s.notReady("pan")
	}
	if !s.panning {
		return s.currentOffset(), fmt.Errorf("%w: no pan gesture in progress", ErrNotReady)
	}
	s.offset = ClampOffset(Offset{X: px - s.anchor.X, Y: py - s.anchor.Y}, s.zoom)
	return s.offset, nil
}

// EndPan finishes the current drag gesture.
func (s *Session) EndPan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panning = false
}

// Pan moves the image by a relative delta, clamped per axis.
func (s *Session) Pan(dx, dy float64) (Offset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return s.currentOffset(), s.notReady("pan")
	}
	cur := s.currentOffset()
	s.offset = ClampOffset(Offset{X: cur.X + dx, Y: cur.Y + dy}, s.zoom)
	return s.offset, nil
}

// Cancel discards the session. Pending loads and in-flight commits are
// abandoned. It reports whether there was anything to cancel.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCancelled || s.state == StateDone {
		return false
	}
	s.ticket++
	s.state = StateCancelled
	s.img = nil
	s.panning = false
	s.result = nil
	return true
}

// Commit rasterizes the visible region into an OutputSize square JPEG.
// A rasterization failure leaves the session Ready so the user can retry.
func (s *Session) Commit(now time.Time) (*Result, error) {
	s.mu.Lock()
	if s.state != StateReady || s.img == nil {
		err := s.notReady("commit")
		s.mu.Unlock()
		return nil, err
	}
	s.state = StateCommitting
	s.panning = false
	ticket := s.ticket
	img := s.img
	rect := SourceRect(s.natural, s.geometry, s.zoom, s.currentOffset())
	size := s.geometry.OutputSize
	quality := s.quality
	s.mu.Unlock()

	res, err := render(img, rect, size, quality, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.ticket || s.state != StateCommitting {
		return nil, ErrCancelled
	}
	if err != nil {
		s.state = StateReady
		slog.Warn("Crop rasterization failed", "session_id", s.id, "err", err)
		return nil, err
	}
	s.state = StateDone
	s.result = res
	return res, nil
}

func render(img image.Image, rect Rect, size, quality int, now time.Time) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrRasterizationFailed, r)
		}
	}()
	out, err := Rasterize(img, rect, size)
	if err != nil {
		return nil, err
	}
	return Encode(out, quality, now)
}

func (s *Session) currentOffset() Offset {
	return ClampOffset(s.offset, s.zoom)
}

func (s *Session) notReady(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrNotReady, op, s.state)
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID               string  `json:"id"`
	State            State   `json:"state"`
	Source           string  `json:"source,omitempty"`
	Zoom             float64 `json:"zoom"`
	Offset           Offset  `json:"offset"`
	PanLimit         float64 `json:"pan_limit"`
	NaturalWidth     int     `json:"natural_width,omitempty"`
	NaturalHeight    int     `json:"natural_height,omitempty"`
	ViewportDiameter float64 `json:"viewport_diameter"`
	OutputSize       int     `json:"output_size"`
	CropRect         *Rect   `json:"crop_rect,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		State:            s.state,
		Source:           displaySource(s.source),
		Zoom:             s.zoom,
		Offset:           s.currentOffset(),
		PanLimit:         PanLimit(s.zoom),
		NaturalWidth:     s.natural.X,
		NaturalHeight:    s.natural.Y,
		ViewportDiameter: s.geometry.ViewportDiameter,
		OutputSize:       s.geometry.OutputSize,
	}
	if s.state == StateReady || s.state == StateCommitting {
		r := SourceRect(s.natural, s.geometry, s.zoom, s.currentOffset())
		snap.CropRect = &r
	}
	if s.loadErr != nil {
		snap.Error = s.loadErr.Error()
	}
	return snap
}

// Result returns the output of a completed commit, if any.
func (s *Session) Result() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// data URIs are shortened so snapshots stay small.
func displaySource(src string) string {
	if strings.HasPrefix(src, "data:") {
		if i := strings.IndexByte(src, ','); i >= 0 {
			return src[:i+1] + "..."
		}
	}
	return src
}
