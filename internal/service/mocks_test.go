package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/repository"
)

type mockShapeRepo struct {
	mu     sync.Mutex
	shapes map[string]*domain.Shape

	failUpdateFor map[string]bool
	failBatch     bool
}

func newMockShapeRepo() *mockShapeRepo {
	return &mockShapeRepo{
		shapes:        make(map[string]*domain.Shape),
		failUpdateFor: make(map[string]bool),
	}
}

func (m *mockShapeRepo) Create(shape *domain.Shape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *shape
	m.shapes[shape.ID] = &cp
	return nil
}

func (m *mockShapeRepo) CreateBatch(shapes []*domain.Shape) error {
	if m.failBatch {
		return errors.New("batch write rejected")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range shapes {
		cp := *s
		m.shapes[s.ID] = &cp
	}
	return nil
}

func (m *mockShapeRepo) FindByID(id string) (*domain.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, exists := m.shapes[id]; exists {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrShapeNotFound
}

func (m *mockShapeRepo) List() ([]*domain.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var shapes []*domain.Shape
	for _, s := range m.shapes {
		cp := *s
		shapes = append(shapes, &cp)
	}
	return shapes, nil
}

func (m *mockShapeRepo) ListByGroup(groupID string) ([]*domain.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var shapes []*domain.Shape
	for _, s := range m.shapes {
		if s.GroupID != nil && *s.GroupID == groupID {
			cp := *s
			shapes = append(shapes, &cp)
		}
	}
	return shapes, nil
}

func (m *mockShapeRepo) Update(id string, fields map[string]interface{}) error {
	if m.failUpdateFor[id] {
		return errors.New("update rejected")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.shapes[id]
	if !exists {
		return repository.ErrShapeNotFound
	}

	for k, v := range fields {
		switch k {
		case "x":
			s.X = v.(float64)
		case "y":
			s.Y = v.(float64)
		case "width":
			s.Width = v.(float64)
		case "height":
			s.Height = v.(float64)
		case "rotation":
			s.Rotation = v.(float64)
		case "color":
			s.Color = v.(string)
		case "text":
			s.Text = v.(string)
		case "font_size":
			s.FontSize = v.(float64)
		case "font_weight":
			s.FontWeight = domain.FontWeight(v.(string))
		case "font_style":
			s.FontStyle = domain.FontStyle(v.(string))
		case "text_decoration":
			s.TextDecoration = domain.TextDecoration(v.(string))
		case "z_index":
			s.ZIndex = v.(int)
		case "group_id":
			if v == nil {
				s.GroupID = nil
			} else {
				gid := v.(string)
				s.GroupID = &gid
			}
		case "locked_by":
			if v == nil {
				s.LockedBy = nil
			} else {
				uid := v.(string)
				s.LockedBy = &uid
			}
		case "locked_at":
			if v == nil {
				s.LockedAt = nil
			} else {
				at := v.(time.Time)
				s.LockedAt = &at
			}
		case "editing_by":
			if v == nil {
				s.EditingBy = nil
			} else {
				uid := v.(string)
				s.EditingBy = &uid
			}
		case "editing_at":
			if v == nil {
				s.EditingAt = nil
			} else {
				at := v.(time.Time)
				s.EditingAt = &at
			}
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *mockShapeRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.shapes[id]; !exists {
		return repository.ErrShapeNotFound
	}
	delete(m.shapes, id)
	return nil
}

func (m *mockShapeRepo) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapes = make(map[string]*domain.Shape)
	return nil
}

func (m *mockShapeRepo) Subscribe(ctx context.Context, fn func([]*domain.Shape)) error {
	shapes, _ := m.List()
	fn(shapes)
	<-ctx.Done()
	return ctx.Err()
}

type mockGroupRepo struct {
	groups     map[string]*domain.Group
	failCreate bool
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: make(map[string]*domain.Group)}
}

func (m *mockGroupRepo) Create(group *domain.Group) error {
	if m.failCreate {
		return errors.New("group write rejected")
	}
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

func (m *mockGroupRepo) FindByID(id string) (*domain.Group, error) {
	if g, exists := m.groups[id]; exists {
		cp := *g
		return &cp, nil
	}
	return nil, repository.ErrGroupNotFound
}

func (m *mockGroupRepo) List() ([]*domain.Group, error) {
	var groups []*domain.Group
	for _, g := range m.groups {
		cp := *g
		groups = append(groups, &cp)
	}
	return groups, nil
}

func (m *mockGroupRepo) Update(group *domain.Group) error {
	if _, exists := m.groups[group.ID]; !exists {
		return repository.ErrGroupNotFound
	}
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

func (m *mockGroupRepo) Delete(id string) error {
	if _, exists := m.groups[id]; !exists {
		return repository.ErrGroupNotFound
	}
	delete(m.groups, id)
	return nil
}

func (m *mockGroupRepo) Subscribe(ctx context.Context, fn func([]*domain.Group)) error {
	groups, _ := m.List()
	fn(groups)
	<-ctx.Done()
	return ctx.Err()
}
