package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"canvas-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

var ErrGroupNotFound = errors.New("group not found")

const groupDocPrefix = "group:"

type GroupRepository interface {
	Create(group *domain.Group) error
	FindByID(id string) (*domain.Group, error)
	List() ([]*domain.Group, error)
	Update(group *domain.Group) error
	Delete(id string) error
	Subscribe(ctx context.Context, fn func([]*domain.Group)) error
}

type groupRepository struct {
	client *kivik.Client
	dbName string
}

func NewGroupRepository(client *kivik.Client, dbName string) GroupRepository {
	return &groupRepository{
		client: client,
		dbName: dbName,
	}
}

type groupDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`

	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	ShapeIDs  []string  `json:"shape_ids"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func docToGroup(d *groupDoc) *domain.Group {
	return &domain.Group{
		ID:        d.ID,
		Name:      d.Name,
		ShapeIDs:  d.ShapeIDs,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *groupRepository) Create(group *domain.Group) error {
	db := r.client.DB(r.dbName)

	doc := &groupDoc{
		DocID:     groupDocPrefix + group.ID,
		DocType:   "group",
		ID:        group.ID,
		Name:      group.Name,
		ShapeIDs:  group.ShapeIDs,
		CreatedBy: group.CreatedBy,
		CreatedAt: group.CreatedAt,
		UpdatedAt: group.UpdatedAt,
	}

	_, err := db.Put(context.Background(), doc.DocID, doc)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

func (r *groupRepository) FindByID(id string) (*domain.Group, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(context.Background(), groupDocPrefix+id)

	var doc groupDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	return docToGroup(&doc), nil
}

func (r *groupRepository) List() ([]*domain.Group, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{"doc_type": "group"},
		"limit":    10000,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		var doc groupDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		groups = append(groups, docToGroup(&doc))
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})

	return groups, nil
}

func (r *groupRepository) Update(group *domain.Group) error {
	db := r.client.DB(r.dbName)
	docID := groupDocPrefix + group.ID

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to fetch existing group for update: %w", err)
	}

	existingDoc["name"] = group.Name
	existingDoc["shape_ids"] = group.ShapeIDs
	existingDoc["updated_at"] = time.Now()

	_, err := db.Put(context.Background(), docID, existingDoc)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	return nil
}

func (r *groupRepository) Delete(id string) error {
	db := r.client.DB(r.dbName)
	docID := groupDocPrefix + id

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to fetch group for delete: %w", err)
	}

	rev, _ := existingDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	return nil
}

func (r *groupRepository) Subscribe(ctx context.Context, fn func([]*domain.Group)) error {
	groups, err := r.List()
	if err != nil {
		return err
	}
	fn(groups)

	db := r.client.DB(r.dbName)

	changes := db.Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":      "continuous",
		"since":     "now",
		"heartbeat": 30000,
	}))
	defer changes.Close()

	for changes.Next() {
		if !strings.HasPrefix(changes.ID(), groupDocPrefix) {
			continue
		}

		groups, err := r.List()
		if err != nil {
			return err
		}
		fn(groups)
	}

	if err := changes.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("group changes feed failed: %w", err)
	}

	return nil
}
