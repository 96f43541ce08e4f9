package service

import (
	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/repository"
)

// ZOrderService maintains the stacking order. z_index is a plain integer;
// total order is (z_index, created_at) and indices are never compacted, so
// they drift apart over the canvas's lifetime. Reorder operations take no
// locks of their own; concurrent reorders race last-write-wins, a visual
// glitch rather than a data-model violation.
type ZOrderService struct {
	repo repository.ShapeRepository
}

func NewZOrderService(repo repository.ShapeRepository) *ZOrderService {
	return &ZOrderService{repo: repo}
}

type ZRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Range scans all shapes for the current min/max z_index. An empty canvas
// reports {0,0}.
func (s *ZOrderService) Range() (ZRange, error) {
	shapes, err := s.repo.List()
	if err != nil {
		return ZRange{}, err
	}
	return zRangeOf(shapes), nil
}

func zRangeOf(shapes []*domain.Shape) ZRange {
	if len(shapes) == 0 {
		return ZRange{}
	}
	r := ZRange{Min: shapes[0].ZIndex, Max: shapes[0].ZIndex}
	for _, sh := range shapes[1:] {
		if sh.ZIndex < r.Min {
			r.Min = sh.ZIndex
		}
		if sh.ZIndex > r.Max {
			r.Max = sh.ZIndex
		}
	}
	return r
}

func (s *ZOrderService) BringToFront(shapeID string) error {
	shapes, err := s.repo.List()
	if err != nil {
		return err
	}
	if _, err := findShape(shapes, shapeID); err != nil {
		return err
	}

	return s.repo.Update(shapeID, map[string]interface{}{
		"z_index": zRangeOf(shapes).Max + 1,
	})
}

func (s *ZOrderService) SendToBack(shapeID string) error {
	shapes, err := s.repo.List()
	if err != nil {
		return err
	}
	if _, err := findShape(shapes, shapeID); err != nil {
		return err
	}

	return s.repo.Update(shapeID, map[string]interface{}{
		"z_index": zRangeOf(shapes).Min - 1,
	})
}

// BringForward swaps z_index with the nearest shape strictly above. Already
// frontmost delegates to BringToFront.
func (s *ZOrderService) BringForward(shapeID string) error {
	shapes, err := s.repo.List()
	if err != nil {
		return err
	}
	shape, err := findShape(shapes, shapeID)
	if err != nil {
		return err
	}

	var neighbor *domain.Shape
	for _, sh := range shapes {
		if sh.ZIndex <= shape.ZIndex {
			continue
		}
		if neighbor == nil || sh.ZIndex < neighbor.ZIndex ||
			(sh.ZIndex == neighbor.ZIndex && sh.CreatedAt.Before(neighbor.CreatedAt)) {
			neighbor = sh
		}
	}

	if neighbor == nil {
		return s.BringToFront(shapeID)
	}
	return s.swap(shape, neighbor)
}

// SendBackward is the symmetric operation: swap with the nearest shape
// strictly below, or delegate to SendToBack at the bottom.
func (s *ZOrderService) SendBackward(shapeID string) error {
	shapes, err := s.repo.List()
	if err != nil {
		return err
	}
	shape, err := findShape(shapes, shapeID)
	if err != nil {
		return err
	}

	var neighbor *domain.Shape
	for _, sh := range shapes {
		if sh.ZIndex >= shape.ZIndex {
			continue
		}
		if neighbor == nil || sh.ZIndex > neighbor.ZIndex ||
			(sh.ZIndex == neighbor.ZIndex && sh.CreatedAt.After(neighbor.CreatedAt)) {
			neighbor = sh
		}
	}

	if neighbor == nil {
		return s.SendToBack(shapeID)
	}
	return s.swap(shape, neighbor)
}

func (s *ZOrderService) swap(a, b *domain.Shape) error {
	if err := s.repo.Update(a.ID, map[string]interface{}{"z_index": b.ZIndex}); err != nil {
		return err
	}
	return s.repo.Update(b.ID, map[string]interface{}{"z_index": a.ZIndex})
}

func findShape(shapes []*domain.Shape, id string) (*domain.Shape, error) {
	for _, sh := range shapes {
		if sh.ID == id {
			return sh, nil
		}
	}
	return nil, &PreconditionError{Reason: "shape not found", Err: repository.ErrShapeNotFound}
}
