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

var ErrShapeNotFound = errors.New("shape not found")

const shapeDocPrefix = "shape:"

// ShapeRepository is the store adapter for canvas shapes. Update is a dumb
// field-level merge: it does not check lock ownership, that is the caller's
// job. Subscribe delivers a full ordered snapshot on every change, never
// deltas.
type ShapeRepository interface {
	Create(shape *domain.Shape) error
	CreateBatch(shapes []*domain.Shape) error
	FindByID(id string) (*domain.Shape, error)
	List() ([]*domain.Shape, error)
	ListByGroup(groupID string) ([]*domain.Shape, error)
	Update(id string, fields map[string]interface{}) error
	Delete(id string) error
	DeleteAll() error
	Subscribe(ctx context.Context, fn func([]*domain.Shape)) error
}

type shapeRepository struct {
	client *kivik.Client
	dbName string
}

func NewShapeRepository(client *kivik.Client, dbName string) ShapeRepository {
	return &shapeRepository{
		client: client,
		dbName: dbName,
	}
}

type shapeDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`

	ID   string           `json:"id"`
	Type domain.ShapeType `json:"type"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Radius   float64 `json:"radius,omitempty"`
	Rotation float64 `json:"rotation"`

	Color          string                `json:"color"`
	FontSize       float64               `json:"font_size,omitempty"`
	FontWeight     domain.FontWeight     `json:"font_weight,omitempty"`
	FontStyle      domain.FontStyle      `json:"font_style,omitempty"`
	TextDecoration domain.TextDecoration `json:"text_decoration,omitempty"`
	Text           string                `json:"text,omitempty"`

	ZIndex  int     `json:"z_index"`
	GroupID *string `json:"group_id"`

	LockedBy  *string    `json:"locked_by"`
	LockedAt  *time.Time `json:"locked_at"`
	EditingBy *string    `json:"editing_by"`
	EditingAt *time.Time `json:"editing_at"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func shapeToDoc(s *domain.Shape) *shapeDoc {
	return &shapeDoc{
		DocID:          shapeDocPrefix + s.ID,
		DocType:        "shape",
		ID:             s.ID,
		Type:           s.Type,
		X:              s.X,
		Y:              s.Y,
		Width:          s.Width,
		Height:         s.Height,
		Radius:         s.Radius,
		Rotation:       s.Rotation,
		Color:          s.Color,
		FontSize:       s.FontSize,
		FontWeight:     s.FontWeight,
		FontStyle:      s.FontStyle,
		TextDecoration: s.TextDecoration,
		Text:           s.Text,
		ZIndex:         s.ZIndex,
		GroupID:        s.GroupID,
		LockedBy:       s.LockedBy,
		LockedAt:       s.LockedAt,
		EditingBy:      s.EditingBy,
		EditingAt:      s.EditingAt,
		CreatedBy:      s.CreatedBy,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func docToShape(d *shapeDoc) *domain.Shape {
	return &domain.Shape{
		ID:             d.ID,
		Type:           d.Type,
		X:              d.X,
		Y:              d.Y,
		Width:          d.Width,
		Height:         d.Height,
		Radius:         d.Radius,
		Rotation:       d.Rotation,
		Color:          d.Color,
		FontSize:       d.FontSize,
		FontWeight:     d.FontWeight,
		FontStyle:      d.FontStyle,
		TextDecoration: d.TextDecoration,
		Text:           d.Text,
		ZIndex:         d.ZIndex,
		GroupID:        d.GroupID,
		LockedBy:       d.LockedBy,
		LockedAt:       d.LockedAt,
		EditingBy:      d.EditingBy,
		EditingAt:      d.EditingAt,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r *shapeRepository) Create(shape *domain.Shape) error {
	db := r.client.DB(r.dbName)

	doc := shapeToDoc(shape)
	_, err := db.Put(context.Background(), doc.DocID, doc)
	if err != nil {
		return fmt.Errorf("failed to create shape: %w", err)
	}

	return nil
}

func (r *shapeRepository) CreateBatch(shapes []*domain.Shape) error {
	if len(shapes) == 0 {
		return nil
	}

	db := r.client.DB(r.dbName)

	docs := make([]interface{}, len(shapes))
	for i, s := range shapes {
		docs[i] = shapeToDoc(s)
	}

	results, err := db.BulkDocs(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("failed to create shape batch: %w", err)
	}

	for _, res := range results {
		if res.Error != nil {
			return fmt.Errorf("failed to create shape %s in batch: %w", res.ID, res.Error)
		}
	}

	return nil
}

func (r *shapeRepository) FindByID(id string) (*domain.Shape, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(context.Background(), shapeDocPrefix+id)

	var doc shapeDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrShapeNotFound
		}
		return nil, fmt.Errorf("failed to find shape: %w", err)
	}

	return docToShape(&doc), nil
}

func (r *shapeRepository) List() ([]*domain.Shape, error) {
	return r.list(map[string]interface{}{"doc_type": "shape"})
}

func (r *shapeRepository) ListByGroup(groupID string) ([]*domain.Shape, error) {
	return r.list(map[string]interface{}{
		"doc_type": "shape",
		"group_id": groupID,
	})
}

func (r *shapeRepository) list(selector map[string]interface{}) ([]*domain.Shape, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": selector,
		"limit":    10000,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list shapes: %w", err)
	}
	defer rows.Close()

	var shapes []*domain.Shape
	for rows.Next() {
		var doc shapeDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		shapes = append(shapes, docToShape(&doc))
	}

	// Mango sort needs an index, so ordering happens here instead.
	sort.Slice(shapes, func(i, j int) bool {
		if shapes[i].CreatedAt.Equal(shapes[j].CreatedAt) {
			return shapes[i].ID < shapes[j].ID
		}
		return shapes[i].CreatedAt.Before(shapes[j].CreatedAt)
	})

	return shapes, nil
}

func (r *shapeRepository) Update(id string, fields map[string]interface{}) error {
	db := r.client.DB(r.dbName)
	docID := shapeDocPrefix + id

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrShapeNotFound
		}
		return fmt.Errorf("failed to fetch existing shape for update: %w", err)
	}

	for k, v := range fields {
		existingDoc[k] = v
	}
	existingDoc["updated_at"] = time.Now()

	// A circle's radius is redundant with its size and kept in sync here so
	// partial geometry updates cannot tear the two apart.
	if existingDoc["type"] == string(domain.ShapeTypeCircle) {
		if w, ok := existingDoc["width"].(float64); ok {
			existingDoc["radius"] = w / 2
		}
	}

	_, err := db.Put(context.Background(), docID, existingDoc)
	if err != nil {
		return fmt.Errorf("failed to update shape: %w", err)
	}

	return nil
}

func (r *shapeRepository) Delete(id string) error {
	db := r.client.DB(r.dbName)
	docID := shapeDocPrefix + id

	var existingDoc map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrShapeNotFound
		}
		return fmt.Errorf("failed to fetch shape for delete: %w", err)
	}

	rev, _ := existingDoc["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to delete shape: %w", err)
	}

	return nil
}

func (r *shapeRepository) DeleteAll() error {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{"doc_type": "shape"},
		"fields":   []string{"_id", "_rev"},
		"limit":    10000,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list shapes for clear: %w", err)
	}
	defer rows.Close()

	var docs []interface{}
	for rows.Next() {
		var doc map[string]interface{}
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		docs = append(docs, map[string]interface{}{
			"_id":      doc["_id"],
			"_rev":     doc["_rev"],
			"_deleted": true,
		})
	}

	if len(docs) == 0 {
		return nil
	}

	results, err := db.BulkDocs(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("failed to clear canvas: %w", err)
	}

	for _, res := range results {
		if res.Error != nil {
			return fmt.Errorf("failed to delete shape %s during clear: %w", res.ID, res.Error)
		}
	}

	return nil
}

// Subscribe follows the continuous changes feed and invokes fn with a fresh
// full snapshot whenever any shape document changes. The initial snapshot is
// delivered before the first change. Blocks until ctx is cancelled or the
// feed breaks.
func (r *shapeRepository) Subscribe(ctx context.Context, fn func([]*domain.Shape)) error {
	shapes, err := r.List()
	if err != nil {
		return err
	}
	fn(shapes)

	db := r.client.DB(r.dbName)

	changes := db.Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":      "continuous",
		"since":     "now",
		"heartbeat": 30000,
	}))
	defer changes.Close()

	for changes.Next() {
		if !strings.HasPrefix(changes.ID(), shapeDocPrefix) {
			continue
		}

		shapes, err := r.List()
		if err != nil {
			return err
		}
		fn(shapes)
	}

	if err := changes.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("shape changes feed failed: %w", err)
	}

	return nil
}
