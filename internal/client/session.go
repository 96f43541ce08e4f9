package client

import (
	"context"
	"sync"

	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/geometry"
)

// ShapeWriter is the slice of the shape service a session needs to commit
// local intent.
type ShapeWriter interface {
	Create(userID string, req *domain.CreateShapeRequest) (*domain.Shape, error)
	Update(userID, shapeID string, req *domain.UpdateShapeRequest) error
}

// Locker is the slice of the lock service a session drives.
type Locker interface {
	Acquire(shapeID, userID string) (bool, error)
	Release(shapeID, userID string) error
	AcquireEditing(shapeID, userID string) (bool, error)
	ReleaseEditing(shapeID, userID string) error
}

// ShapeFeed and GroupFeed are the live snapshot subscriptions.
type ShapeFeed interface {
	Subscribe(ctx context.Context, fn func([]*domain.Shape)) error
}

type GroupFeed interface {
	Subscribe(ctx context.Context, fn func([]*domain.Group)) error
}

// DrawSession is the transient pointer-down-to-pointer-up state. It exists
// only on this client and never touches the store until EndDraw commits.
type DrawSession struct {
	Type   domain.ShapeType
	StartX float64
	StartY float64
	CurX   float64
	CurY   float64
}

// Preview is the rectangle the UI would render for the drag so far.
func (d *DrawSession) Preview() geometry.Rect {
	return geometry.NormalizeRectangle(d.StartX, d.StartY, d.CurX, d.CurY)
}

// TextFormat is the local formatting preview for the shape being edited. It
// flips immediately for a responsive UI while the authoritative update is in
// flight, and is resynchronized from the snapshot whenever the edited shape
// changes.
type TextFormat struct {
	ShapeID   string
	Bold      bool
	Italic    bool
	Underline bool
	FontSize  float64
}

// Session is one user's view of the shared canvas: authoritative snapshots
// reconciled with local optimistic state.
type Session struct {
	selfID string
	writer ShapeWriter
	locker Locker

	mu      sync.Mutex
	state   *State
	drawing *DrawSession
	format  *TextFormat
}

func NewSession(selfID string, writer ShapeWriter, locker Locker) *Session {
	return &Session{
		selfID: selfID,
		writer: writer,
		locker: locker,
		state:  NewState(),
	}
}

// Run subscribes to both feeds and blocks until ctx is cancelled or either
// feed fails.
func (s *Session) Run(ctx context.Context, shapes ShapeFeed, groups GroupFeed) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- shapes.Subscribe(ctx, s.ApplyShapeSnapshot)
	}()
	go func() {
		errCh <- groups.Subscribe(ctx, s.ApplyGroupSnapshot)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyShapeSnapshot replaces the shape list and recomputes the lock-status
// projection.
func (s *Session) ApplyShapeSnapshot(shapes []*domain.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reconcile(s.state, shapes, s.selfID)
	s.resyncFormatLocked()
}

func (s *Session) ApplyGroupSnapshot(groups []*domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ReconcileGroups(s.state, groups)
}

// State returns a copy of the current derived state that stays safe to read
// while the session keeps reconciling. The shape and group slices are shared:
// snapshots replace them wholesale and never mutate them in place. The maps
// are mutated in place by lock requests, so they are copied.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := State{
		Shapes:     s.state.Shapes,
		Groups:     s.state.Groups,
		LockStatus: make(map[string]LockStatus, len(s.state.LockStatus)),
		Selected:   append([]string(nil), s.state.Selected...),
		byID:       make(map[string]*domain.Shape, len(s.state.byID)),
	}
	for id, st := range s.state.LockStatus {
		cp.LockStatus[id] = st
	}
	for id, sh := range s.state.byID {
		cp.byID[id] = sh
	}
	return cp
}

// Select adds a shape to the local selection if it exists in the snapshot.
func (s *Session) Select(shapeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.byID[shapeID]; !ok {
		return false
	}
	if s.state.IsSelected(shapeID) {
		return true
	}
	s.state.Selected = append(s.state.Selected, shapeID)
	return true
}

func (s *Session) Deselect(shapeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.Selected[:0]
	for _, id := range s.state.Selected {
		if id != shapeID {
			kept = append(kept, id)
		}
	}
	s.state.Selected = kept
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selected = nil
}

// RequestLock records pending intent, then issues the acquire. The returned
// bool mirrors the store's answer; the definitive status still comes from the
// next snapshot.
func (s *Session) RequestLock(shapeID string) (bool, error) {
	s.mu.Lock()
	s.state.LockStatus[shapeID] = LockPending
	s.mu.Unlock()

	ok, err := s.locker.Acquire(shapeID, s.selfID)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.state.LockStatus[shapeID] = LockFailed
		return false, err
	case !ok:
		s.state.LockStatus[shapeID] = LockFailed
		return false, nil
	default:
		s.state.LockStatus[shapeID] = LockConfirmed
		return true, nil
	}
}

func (s *Session) ReleaseLock(shapeID string) error {
	s.mu.Lock()
	delete(s.state.LockStatus, shapeID)
	s.mu.Unlock()

	return s.locker.Release(shapeID, s.selfID)
}

// LockStatusOf returns the current projection for one shape.
func (s *Session) LockStatusOf(shapeID string) (LockStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state.LockStatus[shapeID]
	return st, ok
}

// BeginDraw starts a drawing session at the pointer-down position.
func (s *Session) BeginDraw(shapeType domain.ShapeType, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawing = &DrawSession{Type: shapeType, StartX: x, StartY: y, CurX: x, CurY: y}
}

func (s *Session) UpdateDraw(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing != nil {
		s.drawing.CurX = x
		s.drawing.CurY = y
	}
}

// Drawing returns the live draw session, if any.
func (s *Session) Drawing() (DrawSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing == nil {
		return DrawSession{}, false
	}
	return *s.drawing, true
}

func (s *Session) CancelDraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = nil
}

// EndDraw commits the drag as a single create when it clears the minimum
// size and bounds checks; otherwise the session is discarded with no write.
func (s *Session) EndDraw(color string) (*domain.Shape, error) {
	s.mu.Lock()
	d := s.drawing
	s.drawing = nil
	s.mu.Unlock()

	if d == nil {
		return nil, nil
	}

	rect := d.Preview()
	if !geometry.MeetsMinimumSize(rect.Width, rect.Height) {
		return nil, nil
	}
	if !geometry.ValidateShapeBounds(rect.X, rect.Y, rect.Width, rect.Height) {
		return nil, nil
	}

	return s.writer.Create(s.selfID, &domain.CreateShapeRequest{
		Type:   d.Type,
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
		Color:  color,
	})
}

// StartTextEdit acquires the text-editing lock and seeds the local format
// toggles from the shape's authoritative state.
func (s *Session) StartTextEdit(shapeID string) (bool, error) {
	s.mu.Lock()
	shape, exists := s.state.byID[shapeID]
	s.mu.Unlock()
	if !exists {
		return false, nil
	}

	ok, err := s.locker.AcquireEditing(shapeID, s.selfID)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = &TextFormat{
		ShapeID:   shapeID,
		Bold:      shape.FontWeight == domain.FontWeightBold,
		Italic:    shape.FontStyle == domain.FontStyleItalic,
		Underline: shape.TextDecoration == domain.TextDecorationUnderline,
		FontSize:  shape.FontSize,
	}
	return true, nil
}

func (s *Session) EndTextEdit() error {
	s.mu.Lock()
	f := s.format
	s.format = nil
	s.mu.Unlock()

	if f == nil {
		return nil
	}
	return s.locker.ReleaseEditing(f.ShapeID, s.selfID)
}

// Format returns the local formatting preview for the shape being edited.
func (s *Session) Format() (TextFormat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == nil {
		return TextFormat{}, false
	}
	return *s.format, true
}

// ToggleBold flips the local preview immediately and issues the authoritative
// update separately. A failed write leaves the two transiently divergent
// until the next snapshot resync.
func (s *Session) ToggleBold() error {
	s.mu.Lock()
	if s.format == nil {
		s.mu.Unlock()
		return nil
	}
	s.format.Bold = !s.format.Bold
	weight := domain.FontWeightNormal
	if s.format.Bold {
		weight = domain.FontWeightBold
	}
	shapeID := s.format.ShapeID
	s.mu.Unlock()

	return s.writer.Update(s.selfID, shapeID, &domain.UpdateShapeRequest{FontWeight: &weight})
}

func (s *Session) ToggleItalic() error {
	s.mu.Lock()
	if s.format == nil {
		s.mu.Unlock()
		return nil
	}
	s.format.Italic = !s.format.Italic
	style := domain.FontStyleNormal
	if s.format.Italic {
		style = domain.FontStyleItalic
	}
	shapeID := s.format.ShapeID
	s.mu.Unlock()

	return s.writer.Update(s.selfID, shapeID, &domain.UpdateShapeRequest{FontStyle: &style})
}

func (s *Session) ToggleUnderline() error {
	s.mu.Lock()
	if s.format == nil {
		s.mu.Unlock()
		return nil
	}
	s.format.Underline = !s.format.Underline
	deco := domain.TextDecorationNone
	if s.format.Underline {
		deco = domain.TextDecorationUnderline
	}
	shapeID := s.format.ShapeID
	s.mu.Unlock()

	return s.writer.Update(s.selfID, shapeID, &domain.UpdateShapeRequest{TextDecoration: &deco})
}

func (s *Session) SetFontSize(size float64) error {
	s.mu.Lock()
	if s.format == nil {
		s.mu.Unlock()
		return nil
	}
	s.format.FontSize = size
	shapeID := s.format.ShapeID
	s.mu.Unlock()

	return s.writer.Update(s.selfID, shapeID, &domain.UpdateShapeRequest{FontSize: &size})
}

// resyncFormatLocked pulls the edited shape's authoritative formatting back
// into the local toggles. Called under s.mu with each shape snapshot; drops
// the edit state when the shape disappears.
func (s *Session) resyncFormatLocked() {
	if s.format == nil {
		return
	}

	shape, exists := s.state.byID[s.format.ShapeID]
	if !exists {
		s.format = nil
		return
	}

	s.format.Bold = shape.FontWeight == domain.FontWeightBold
	s.format.Italic = shape.FontStyle == domain.FontStyleItalic
	s.format.Underline = shape.TextDecoration == domain.TextDecorationUnderline
	s.format.FontSize = shape.FontSize
}
