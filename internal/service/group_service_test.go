package service

import (
	"errors"
	"testing"

	"canvas-sync-server/internal/domain"
)

func seedShapesAt(repo *mockShapeRepo, positions map[string][2]float64) {
	for id, pos := range positions {
		seedShape(repo, id)
		repo.shapes[id].X = pos[0]
		repo.shapes[id].Y = pos[1]
	}
}

func TestGroupService_Group(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")

	group, err := svc.Group("userA", &domain.CreateGroupRequest{
		Name:     "pair",
		ShapeIDs: []string{"s1", "s2"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(group.ShapeIDs) != 2 {
		t.Fatalf("expected 2 member ids, got %d", len(group.ShapeIDs))
	}
	for _, id := range []string{"s1", "s2"} {
		s, _ := shapeRepo.FindByID(id)
		if s.GroupID == nil || *s.GroupID != group.ID {
			t.Errorf("expected shape %s tagged with group %s", id, group.ID)
		}
	}
	if _, err := groupRepo.FindByID(group.ID); err != nil {
		t.Error("expected group record persisted")
	}
}

func TestGroupService_GroupRejectsSingleShape(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShape(shapeRepo, "s1")

	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1"}})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGroupService_GroupRejectsDuplicateIDs(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShape(shapeRepo, "s1")

	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s1"}})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGroupService_GroupRejectsMissingShapeWithoutWrites(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")

	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "gone"}})
	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}

	s, _ := shapeRepo.FindByID("s1")
	if s.GroupID != nil {
		t.Error("expected no shape tagged after failed precondition")
	}
	if groups, _ := groupRepo.List(); len(groups) != 0 {
		t.Error("expected no group record after failed precondition")
	}
}

func TestGroupService_GroupRejectsAlreadyGroupedShape(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	existing := "other-group"
	shapeRepo.shapes["s2"].GroupID = &existing

	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})
	if !errors.Is(err, ErrShapeAlreadyGrouped) {
		t.Fatalf("expected ErrShapeAlreadyGrouped, got %v", err)
	}
}

func TestGroupService_GroupRollsBackTagsOnRecordFailure(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	groupRepo.failCreate = true
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")

	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})
	if err == nil {
		t.Fatal("expected error when the group record write fails")
	}

	for _, id := range []string{"s1", "s2"} {
		s, _ := shapeRepo.FindByID(id)
		if s.GroupID != nil {
			t.Errorf("expected tag on shape %s rolled back", id)
		}
	}
}

func TestGroupService_GroupRollsBackEarlierTagsOnTagFailure(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	seedShape(shapeRepo, "s3")

	// Fail tagging partway through, after s1 is already tagged. Rollback
	// clears the tag with a write that is not itself blocked.
	shapeRepo.failUpdateFor["s2"] = true
	defer delete(shapeRepo.failUpdateFor, "s2")

	tagged := false
	_, err := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2", "s3"}})
	if err == nil {
		t.Fatal("expected error when tagging fails")
	}

	for _, id := range []string{"s1", "s3"} {
		s, _ := shapeRepo.FindByID(id)
		if s.GroupID != nil {
			tagged = true
		}
	}
	if tagged {
		t.Error("expected all applied tags rolled back after partial failure")
	}
}

func TestGroupService_Ungroup(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})

	if err := svc.Ungroup(group.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, id := range []string{"s1", "s2"} {
		s, _ := shapeRepo.FindByID(id)
		if s.GroupID != nil {
			t.Errorf("expected shape %s untagged after ungroup", id)
		}
	}
	if _, err := groupRepo.FindByID(group.ID); err == nil {
		t.Error("expected group record removed after ungroup")
	}
}

func TestGroupService_MovePreservesOffsets(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShapesAt(shapeRepo, map[string][2]float64{
		"s1": {100, 100},
		"s2": {200, 100},
	})
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})

	if err := svc.Move(group.ID, 10, -5); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	s1, _ := shapeRepo.FindByID("s1")
	s2, _ := shapeRepo.FindByID("s2")
	if s1.X != 110 || s1.Y != 95 {
		t.Errorf("expected s1 at (110,95), got (%v,%v)", s1.X, s1.Y)
	}
	if s2.X != 210 || s2.Y != 95 {
		t.Errorf("expected s2 at (210,95), got (%v,%v)", s2.X, s2.Y)
	}
}

func TestGroupService_MoveEmptyGroup(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})

	// All members deleted out from under the group.
	shapeRepo.Delete("s1")
	shapeRepo.Delete("s2")

	err := svc.Move(group.ID, 10, 10)
	if !errors.Is(err, ErrGroupEmpty) {
		t.Errorf("expected ErrGroupEmpty, got %v", err)
	}
}

func TestGroupService_MoveSkipsDeletedMembers(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShapesAt(shapeRepo, map[string][2]float64{
		"s1": {100, 100},
		"s2": {200, 100},
	})
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})
	shapeRepo.Delete("s2")

	if err := svc.Move(group.ID, 50, 0); err != nil {
		t.Fatalf("expected move to skip the deleted member, got %v", err)
	}

	s1, _ := shapeRepo.FindByID("s1")
	if s1.X != 150 {
		t.Errorf("expected surviving member moved, got x=%v", s1.X)
	}
}

func TestGroupService_ShapesInGroupPrunesDeletedMembers(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	seedShape(shapeRepo, "s3")
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2", "s3"}})

	shapeRepo.Delete("s3")

	shapes, err := svc.ShapesInGroup(group.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(shapes) != 2 {
		t.Fatalf("expected 2 surviving members, got %d", len(shapes))
	}

	stored, _ := groupRepo.FindByID(group.ID)
	if len(stored.ShapeIDs) != 2 {
		t.Errorf("expected the group record rewritten without the dead member, got %v", stored.ShapeIDs)
	}
	for _, id := range stored.ShapeIDs {
		if id == "s3" {
			t.Error("expected the deleted member gone from the record")
		}
	}
}

func TestGroupService_DuplicateCreatesUngroupedCopies(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	svc := NewGroupService(newMockGroupRepo(), shapeRepo)

	seedShapesAt(shapeRepo, map[string][2]float64{
		"s1": {100, 100},
		"s2": {200, 100},
	})
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})

	ids, err := svc.Duplicate("userB", group.ID, 20, 20)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 copies, got %d", len(ids))
	}

	for _, id := range ids {
		c, err := shapeRepo.FindByID(id)
		if err != nil {
			t.Fatalf("copy %s not persisted: %v", id, err)
		}
		if c.GroupID != nil {
			t.Error("expected copies to start ungrouped")
		}
		if c.LockedBy != nil || c.EditingBy != nil {
			t.Error("expected copies to start unlocked")
		}
		if c.CreatedBy != "userB" {
			t.Errorf("expected copies attributed to the duplicating user, got %s", c.CreatedBy)
		}
	}

	// Originals keep their group membership.
	s1, _ := shapeRepo.FindByID("s1")
	if s1.GroupID == nil || *s1.GroupID != group.ID {
		t.Error("expected original members to stay grouped")
	}
}

func TestGroupService_Delete(t *testing.T) {
	shapeRepo := newMockShapeRepo()
	groupRepo := newMockGroupRepo()
	svc := NewGroupService(groupRepo, shapeRepo)

	seedShape(shapeRepo, "s1")
	seedShape(shapeRepo, "s2")
	group, _ := svc.Group("userA", &domain.CreateGroupRequest{ShapeIDs: []string{"s1", "s2"}})

	if err := svc.Delete(group.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(shapeRepo.shapes) != 0 {
		t.Error("expected member shapes deleted with the group")
	}
	if _, err := groupRepo.FindByID(group.ID); err == nil {
		t.Error("expected group record removed")
	}
}
