package service

import (
	"testing"
	"time"

	"canvas-sync-server/internal/domain"
)

func seedShape(repo *mockShapeRepo, id string) *domain.Shape {
	now := time.Now()
	shape := &domain.Shape{
		ID:        id,
		Type:      domain.ShapeTypeRectangle,
		X:         100,
		Y:         100,
		Width:     50,
		Height:    50,
		Color:     "#FF0000",
		CreatedBy: "system",
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.Create(shape)
	return shape
}

func TestLockService_Acquire(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	ok, err := svc.Acquire("s1", "userA")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Fatal("expected lock on an unlocked shape to succeed")
	}

	s, _ := repo.FindByID("s1")
	if s.LockedBy == nil || *s.LockedBy != "userA" {
		t.Error("expected locked_by to record the holder")
	}
	if s.LockedAt == nil {
		t.Error("expected locked_at to be stamped")
	}
}

func TestLockService_MutualExclusion(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	if ok, _ := svc.Acquire("s1", "userA"); !ok {
		t.Fatal("first acquire should succeed")
	}
	ok, err := svc.Acquire("s1", "userB")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Error("expected acquire to fail while another user holds a live lock")
	}

	s, _ := repo.FindByID("s1")
	if *s.LockedBy != "userA" {
		t.Error("expected the original holder to keep the lock")
	}
}

func TestLockService_ReacquireByHolder(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	svc.Acquire("s1", "userA")
	ok, err := svc.Acquire("s1", "userA")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Error("expected the holder to be able to refresh its own lock")
	}
}

func TestLockService_AcquireOverExpiredLock(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	owner := "userA"
	stale := time.Now().Add(-6 * time.Second)
	repo.shapes["s1"].LockedBy = &owner
	repo.shapes["s1"].LockedAt = &stale

	ok, err := svc.Acquire("s1", "userB")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Error("expected an expired lock to be acquirable")
	}

	s, _ := repo.FindByID("s1")
	if *s.LockedBy != "userB" {
		t.Error("expected lock ownership to move to the new holder")
	}
}

func TestLockService_ReleaseIdempotent(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")
	svc.Acquire("s1", "userA")

	if err := svc.Release("s1", "userA"); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := svc.Release("s1", "userA"); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}

	s, _ := repo.FindByID("s1")
	if s.LockedBy != nil || s.LockedAt != nil {
		t.Error("expected lock fields cleared after release")
	}
}

func TestLockService_ReleaseMissingShape(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	if err := svc.Release("gone", "userA"); err != nil {
		t.Errorf("expected release of a deleted shape to succeed quietly, got %v", err)
	}
}

func TestLockService_ReleaseLeavesOtherHoldersLock(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")
	svc.Acquire("s1", "userA")

	if err := svc.Release("s1", "userB"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	s, _ := repo.FindByID("s1")
	if s.LockedBy == nil || *s.LockedBy != "userA" {
		t.Error("expected a live lock held by another user to be left alone")
	}
}

func TestLockService_ForeignReleaseKeepsHoldersTimer(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, 30*time.Millisecond)
	defer svc.Close()

	seedShape(repo, "s1")
	svc.Acquire("s1", "userA")

	// A non-holder's release is a no-op and must not take the holder's
	// auto-release timer down with it.
	if err := svc.Release("s1", "userB"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	s, _ := repo.FindByID("s1")
	if s.LockedBy != nil {
		t.Error("expected the holder's timer to survive a non-holder release and clear the lock")
	}
}

func TestLockService_ForeignEditingReleaseKeepsHoldersTimer(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, 30*time.Millisecond)
	defer svc.Close()

	seedShape(repo, "s1")
	svc.AcquireEditing("s1", "userA")

	if err := svc.ReleaseEditing("s1", "userB"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	s, _ := repo.FindByID("s1")
	if s.EditingBy != nil {
		t.Error("expected the holder's timer to survive a non-holder release and clear the editing lock")
	}
}

func TestLockService_AutoRelease(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, 30*time.Millisecond)
	defer svc.Close()

	seedShape(repo, "s1")
	svc.Acquire("s1", "userA")

	time.Sleep(100 * time.Millisecond)

	s, _ := repo.FindByID("s1")
	if s.LockedBy != nil {
		t.Error("expected the holder's timer to clear an abandoned lock")
	}
}

func TestLockService_EditingLockIndependent(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	if ok, _ := svc.Acquire("s1", "userA"); !ok {
		t.Fatal("geometry acquire should succeed")
	}
	ok, err := svc.AcquireEditing("s1", "userB")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Error("expected the text-editing lock to be independent of the geometry lock")
	}

	s, _ := repo.FindByID("s1")
	if *s.LockedBy != "userA" || *s.EditingBy != "userB" {
		t.Error("expected both locks held by their respective users")
	}
}

func TestLockService_EditingMutualExclusion(t *testing.T) {
	repo := newMockShapeRepo()
	svc := NewLockService(repo, testLockTimeout)
	defer svc.Close()

	seedShape(repo, "s1")

	svc.AcquireEditing("s1", "userA")
	if ok, _ := svc.AcquireEditing("s1", "userB"); ok {
		t.Error("expected a live editing lock to exclude other users")
	}

	if err := svc.ReleaseEditing("s1", "userA"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok, _ := svc.AcquireEditing("s1", "userB"); !ok {
		t.Error("expected editing lock acquirable after release")
	}
}
