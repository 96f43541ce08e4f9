package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/geometry"
	"canvas-sync-server/internal/repository"

	"github.com/oklog/ulid/v2"
)

// ShapeService implements the shape store operations. The repository below it
// is a dumb merge; lock-ownership policy is enforced here, on a fresh read,
// before any write goes out.
type ShapeService struct {
	repo        repository.ShapeRepository
	lockTimeout time.Duration
}

func NewShapeService(repo repository.ShapeRepository, lockTimeout time.Duration) *ShapeService {
	return &ShapeService{
		repo:        repo,
		lockTimeout: lockTimeout,
	}
}

func (s *ShapeService) buildShape(userID string, req *domain.CreateShapeRequest, now time.Time) (*domain.Shape, error) {
	if !geometry.ValidateShapeBounds(req.X, req.Y, req.Width, req.Height) {
		return nil, &ValidationError{Reason: fmt.Sprintf("shape (%v,%v %vx%v) is outside the canvas", req.X, req.Y, req.Width, req.Height)}
	}

	shape := &domain.Shape{
		ID:             ulid.Make().String(),
		Type:           req.Type,
		X:              req.X,
		Y:              req.Y,
		Width:          req.Width,
		Height:         req.Height,
		Rotation:       req.Rotation,
		Color:          req.Color,
		FontSize:       req.FontSize,
		FontWeight:     req.FontWeight,
		FontStyle:      req.FontStyle,
		TextDecoration: req.TextDecoration,
		Text:           req.Text,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if shape.Type == domain.ShapeTypeCircle {
		shape.Radius = shape.Width / 2
	}

	return shape, nil
}

// Create writes one shape document. IDs are ULIDs: time plus randomness, so
// concurrent clients never collide without coordinating.
func (s *ShapeService) Create(userID string, req *domain.CreateShapeRequest) (*domain.Shape, error) {
	shape, err := s.buildShape(userID, req, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(shape); err != nil {
		return nil, err
	}

	return shape, nil
}

// CreateBatch applies N creates in one bulk write. Purely a throughput
// optimization for bulk insertion; individual creates are already
// independent. Every request is validated before anything is written.
func (s *ShapeService) CreateBatch(userID string, reqs []*domain.CreateShapeRequest) ([]*domain.Shape, error) {
	if len(reqs) == 0 {
		return nil, &ValidationError{Reason: "batch contains no shapes"}
	}

	now := time.Now()
	shapes := make([]*domain.Shape, 0, len(reqs))
	for _, req := range reqs {
		shape, err := s.buildShape(userID, req, now)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, shape)
	}

	if err := s.repo.CreateBatch(shapes); err != nil {
		return nil, err
	}

	return shapes, nil
}

func (s *ShapeService) Get(shapeID string) (*domain.Shape, error) {
	return s.repo.FindByID(shapeID)
}

// List returns all shapes ordered by creation time ascending.
func (s *ShapeService) List() ([]*domain.Shape, error) {
	return s.repo.List()
}

// Update merges the given fields into the shape. The write is refused when a
// different user holds a live geometry lock; the lock itself stays advisory,
// nothing below this layer enforces it.
func (s *ShapeService) Update(userID, shapeID string, req *domain.UpdateShapeRequest) error {
	shape, err := s.repo.FindByID(shapeID)
	if err != nil {
		if errors.Is(err, repository.ErrShapeNotFound) {
			return &PreconditionError{Reason: "shape not found", Err: err}
		}
		return err
	}

	if shape.LockedByOther(userID, time.Now(), s.lockTimeout) {
		return &PreconditionError{Reason: fmt.Sprintf("shape is locked by %s", *shape.LockedBy)}
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return nil
	}

	return s.repo.Update(shapeID, fields)
}

// Duplicate copies a shape with a fresh id at an offset position. The copy
// starts unlocked and ungrouped.
func (s *ShapeService) Duplicate(userID, shapeID string, dx, dy float64) (*domain.Shape, error) {
	src, err := s.repo.FindByID(shapeID)
	if err != nil {
		if errors.Is(err, repository.ErrShapeNotFound) {
			return nil, &PreconditionError{Reason: "shape not found", Err: err}
		}
		return nil, err
	}

	now := time.Now()
	copyShape := *src
	copyShape.ID = ulid.Make().String()
	copyShape.X, copyShape.Y = geometry.ClampShapeToCanvas(src.X+dx, src.Y+dy, src.Width, src.Height)
	copyShape.GroupID = nil
	copyShape.LockedBy = nil
	copyShape.LockedAt = nil
	copyShape.EditingBy = nil
	copyShape.EditingAt = nil
	copyShape.CreatedBy = userID
	copyShape.CreatedAt = now
	copyShape.UpdatedAt = now

	if err := s.repo.Create(&copyShape); err != nil {
		return nil, err
	}

	return &copyShape, nil
}

func (s *ShapeService) Delete(shapeID string) error {
	return s.repo.Delete(shapeID)
}

// Clear removes every shape on the canvas in one bulk write.
func (s *ShapeService) Clear() error {
	return s.repo.DeleteAll()
}

// Subscribe streams full shape snapshots to fn until ctx is cancelled.
func (s *ShapeService) Subscribe(ctx context.Context, fn func([]*domain.Shape)) error {
	return s.repo.Subscribe(ctx, fn)
}
