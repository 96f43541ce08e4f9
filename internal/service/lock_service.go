package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"canvas-sync-server/internal/repository"
)

// LockService implements the advisory per-shape edit locks. Acquisition is
// read-then-write without a transaction: two clients racing inside one tick
// can both believe they won, last writer wins silently, and the loser finds
// out on the next snapshot. That race is accepted; the snapshot-driven lock
// status recompute is the source of truth for the UI.
//
// The geometry lock (locked_by/locked_at) and the text-editing lock
// (editing_by/editing_at) share the same mechanics but are fully independent.
type LockService struct {
	repo    repository.ShapeRepository
	timeout time.Duration

	mu         sync.Mutex
	timers     map[string]*time.Timer
	editTimers map[string]*time.Timer
}

func NewLockService(repo repository.ShapeRepository, timeout time.Duration) *LockService {
	return &LockService{
		repo:       repo,
		timeout:    timeout,
		timers:     make(map[string]*time.Timer),
		editTimers: make(map[string]*time.Timer),
	}
}

// Acquire attempts to take the geometry lock for userID. Returns false when a
// different user holds a live lock; a lock whose locked_at is older than the
// timeout counts as released even though the fields were never cleared.
func (s *LockService) Acquire(shapeID, userID string) (bool, error) {
	shape, err := s.repo.FindByID(shapeID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if shape.LockedByOther(userID, now, s.timeout) {
		return false, nil
	}

	if err := s.repo.Update(shapeID, map[string]interface{}{
		"locked_by": userID,
		"locked_at": now,
	}); err != nil {
		return false, err
	}

	s.scheduleAutoRelease(shapeID, userID)
	return true, nil
}

// Release drops the geometry lock. It is idempotent: releasing an unlocked or
// already-deleted shape is a no-op, and a lock held live by someone else is
// left alone, including its holder's auto-release timer.
func (s *LockService) Release(shapeID, userID string) error {
	shape, err := s.repo.FindByID(shapeID)
	if err != nil {
		if errors.Is(err, repository.ErrShapeNotFound) {
			s.cancelTimer(s.timers, shapeID)
			return nil
		}
		return err
	}

	if shape.LockedByOther(userID, time.Now(), s.timeout) {
		return nil
	}
	s.cancelTimer(s.timers, shapeID)
	if shape.LockedBy == nil {
		return nil
	}

	err = s.repo.Update(shapeID, map[string]interface{}{
		"locked_by": nil,
		"locked_at": nil,
	})
	if errors.Is(err, repository.ErrShapeNotFound) {
		return nil
	}
	return err
}

// AcquireEditing takes the text-editing lock. It checks editing_by only; a
// shape geometry-locked by one user can still be text-edited by another.
func (s *LockService) AcquireEditing(shapeID, userID string) (bool, error) {
	shape, err := s.repo.FindByID(shapeID)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if shape.EditLocked(now, s.timeout) && *shape.EditingBy != userID {
		return false, nil
	}

	if err := s.repo.Update(shapeID, map[string]interface{}{
		"editing_by": userID,
		"editing_at": now,
	}); err != nil {
		return false, err
	}

	s.scheduleEditAutoRelease(shapeID, userID)
	return true, nil
}

func (s *LockService) ReleaseEditing(shapeID, userID string) error {
	shape, err := s.repo.FindByID(shapeID)
	if err != nil {
		if errors.Is(err, repository.ErrShapeNotFound) {
			s.cancelTimer(s.editTimers, shapeID)
			return nil
		}
		return err
	}

	if shape.EditLocked(time.Now(), s.timeout) && *shape.EditingBy != userID {
		return nil
	}
	s.cancelTimer(s.editTimers, shapeID)
	if shape.EditingBy == nil {
		return nil
	}

	err = s.repo.Update(shapeID, map[string]interface{}{
		"editing_by": nil,
		"editing_at": nil,
	})
	if errors.Is(err, repository.ErrShapeNotFound) {
		return nil
	}
	return err
}

// Timeout returns the advisory lock expiry window.
func (s *LockService) Timeout() time.Duration {
	return s.timeout
}

// The holder's own process clears its lock after the timeout so an abandoned
// lock cannot starve other users. Cooperative only: a crashed holder's lock
// still expires via the derived check on every reader.
func (s *LockService) scheduleAutoRelease(shapeID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[shapeID]; ok {
		t.Stop()
	}
	s.timers[shapeID] = time.AfterFunc(s.timeout, func() {
		if err := s.Release(shapeID, userID); err != nil {
			log.Printf("auto-release of shape %s failed: %v", shapeID, err)
		}
	})
}

func (s *LockService) scheduleEditAutoRelease(shapeID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.editTimers[shapeID]; ok {
		t.Stop()
	}
	s.editTimers[shapeID] = time.AfterFunc(s.timeout, func() {
		if err := s.ReleaseEditing(shapeID, userID); err != nil {
			log.Printf("auto-release of text edit on shape %s failed: %v", shapeID, err)
		}
	})
}

func (s *LockService) cancelTimer(timers map[string]*time.Timer, shapeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := timers[shapeID]; ok {
		t.Stop()
		delete(timers, shapeID)
	}
}

// Close sweeps all pending auto-release timers.
func (s *LockService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	for id, t := range s.editTimers {
		t.Stop()
		delete(s.editTimers, id)
	}
}
