package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/repository"

	"github.com/oklog/ulid/v2"
)

// GroupService keeps shape.group_id and group.shape_ids consistent. The
// backing store has no multi-document transactions, so multi-write operations
// follow a compensating-write order: member shapes are tagged first and the
// group record is written last, with best-effort rollback of applied tags on
// partial failure. A group record without tagged members (or vice versa) is
// the inconsistency the ordering protects against.
type GroupService struct {
	groupRepo repository.GroupRepository
	shapeRepo repository.ShapeRepository
}

func NewGroupService(groupRepo repository.GroupRepository, shapeRepo repository.ShapeRepository) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		shapeRepo: shapeRepo,
	}
}

// Group creates a group from at least two existing, ungrouped shapes. All
// preconditions are checked against fresh reads before any write goes out.
func (s *GroupService) Group(userID string, req *domain.CreateGroupRequest) (*domain.Group, error) {
	if len(req.ShapeIDs) < 2 {
		return nil, &ValidationError{Reason: ErrTooFewShapes.Error()}
	}

	seen := make(map[string]bool, len(req.ShapeIDs))
	for _, id := range req.ShapeIDs {
		if seen[id] {
			return nil, &ValidationError{Reason: ErrDuplicateShapeID.Error()}
		}
		seen[id] = true
	}

	for _, id := range req.ShapeIDs {
		shape, err := s.shapeRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, repository.ErrShapeNotFound) {
				return nil, &PreconditionError{Reason: fmt.Sprintf("shape %s not found", id), Err: err}
			}
			return nil, err
		}
		if shape.GroupID != nil {
			return nil, &PreconditionError{Reason: fmt.Sprintf("shape %s already belongs to group %s", id, *shape.GroupID), Err: ErrShapeAlreadyGrouped}
		}
	}

	now := time.Now()
	group := &domain.Group{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		ShapeIDs:  req.ShapeIDs,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var tagged []string
	for _, id := range req.ShapeIDs {
		if err := s.shapeRepo.Update(id, map[string]interface{}{"group_id": group.ID}); err != nil {
			s.rollbackTags(tagged)
			return nil, fmt.Errorf("failed to tag shape %s: %w", id, err)
		}
		tagged = append(tagged, id)
	}

	if err := s.groupRepo.Create(group); err != nil {
		s.rollbackTags(tagged)
		return nil, err
	}

	return group, nil
}

func (s *GroupService) rollbackTags(shapeIDs []string) {
	for _, id := range shapeIDs {
		if err := s.shapeRepo.Update(id, map[string]interface{}{"group_id": nil}); err != nil {
			log.Printf("rollback of group tag on shape %s failed: %v", id, err)
		}
	}
}

func (s *GroupService) Get(groupID string) (*domain.Group, error) {
	return s.groupRepo.FindByID(groupID)
}

func (s *GroupService) List() ([]*domain.Group, error) {
	return s.groupRepo.List()
}

// ShapesInGroup resolves the group's member list against live shapes. Members
// deleted out from under the group are dropped and the group record is
// rewritten with the surviving ids, so later reads stop chasing dead members.
// A fully emptied member list surfaces as ErrGroupEmpty at the call sites
// below.
func (s *GroupService) ShapesInGroup(groupID string) ([]*domain.Shape, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, err
	}

	var shapes []*domain.Shape
	live := make([]string, 0, len(group.ShapeIDs))
	for _, id := range group.ShapeIDs {
		shape, err := s.shapeRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, repository.ErrShapeNotFound) {
				continue
			}
			return nil, err
		}
		live = append(live, id)
		shapes = append(shapes, shape)
	}

	if len(live) < len(group.ShapeIDs) {
		group.ShapeIDs = live
		group.UpdatedAt = time.Now()
		if err := s.groupRepo.Update(group); err != nil {
			log.Printf("prune of group %s member list failed: %v", groupID, err)
		}
	}

	return shapes, nil
}

// Ungroup clears every member's tag and removes the group record. The record
// goes last so a partial failure leaves a group that can be ungrouped again,
// never orphaned tags.
func (s *GroupService) Ungroup(groupID string) error {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return err
	}

	for _, id := range group.ShapeIDs {
		err := s.shapeRepo.Update(id, map[string]interface{}{"group_id": nil})
		if err != nil && !errors.Is(err, repository.ErrShapeNotFound) {
			return fmt.Errorf("failed to untag shape %s: %w", id, err)
		}
	}

	return s.groupRepo.Delete(groupID)
}

// Move shifts every member by the same (dx, dy), preserving relative offsets
// exactly. No clamping: clamping individual members would distort the
// group's internal layout.
func (s *GroupService) Move(groupID string, dx, dy float64) error {
	shapes, err := s.ShapesInGroup(groupID)
	if err != nil {
		return err
	}
	if len(shapes) == 0 {
		return &PreconditionError{Reason: "group has no remaining shapes", Err: ErrGroupEmpty}
	}

	for _, shape := range shapes {
		if err := s.shapeRepo.Update(shape.ID, map[string]interface{}{
			"x": shape.X + dx,
			"y": shape.Y + dy,
		}); err != nil {
			return fmt.Errorf("failed to move shape %s: %w", shape.ID, err)
		}
	}

	return nil
}

// Duplicate copies every member shape at the given offset in one batch write
// and returns the new shape ids. The copies are created ungrouped: groups
// only ever come into existence through an explicit Group call.
func (s *GroupService) Duplicate(userID, groupID string, dx, dy float64) ([]string, error) {
	shapes, err := s.ShapesInGroup(groupID)
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, &PreconditionError{Reason: "group has no remaining shapes", Err: ErrGroupEmpty}
	}

	now := time.Now()
	copies := make([]*domain.Shape, 0, len(shapes))
	for _, src := range shapes {
		c := *src
		c.ID = ulid.Make().String()
		c.X = src.X + dx
		c.Y = src.Y + dy
		c.GroupID = nil
		c.LockedBy = nil
		c.LockedAt = nil
		c.EditingBy = nil
		c.EditingAt = nil
		c.CreatedBy = userID
		c.CreatedAt = now
		c.UpdatedAt = now
		copies = append(copies, &c)
	}

	if err := s.shapeRepo.CreateBatch(copies); err != nil {
		return nil, err
	}

	ids := make([]string, len(copies))
	for i, c := range copies {
		ids[i] = c.ID
	}
	return ids, nil
}

// Delete removes every member shape and then the group record.
func (s *GroupService) Delete(groupID string) error {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return err
	}

	for _, id := range group.ShapeIDs {
		err := s.shapeRepo.Delete(id)
		if err != nil && !errors.Is(err, repository.ErrShapeNotFound) {
			return fmt.Errorf("failed to delete shape %s: %w", id, err)
		}
	}

	return s.groupRepo.Delete(group.ID)
}

// Subscribe streams full group snapshots to fn until ctx is cancelled.
func (s *GroupService) Subscribe(ctx context.Context, fn func([]*domain.Group)) error {
	return s.groupRepo.Subscribe(ctx, fn)
}
