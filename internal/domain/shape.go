package domain

import "time"

type ShapeType string

const (
	ShapeTypeRectangle ShapeType = "rectangle"
	ShapeTypeCircle    ShapeType = "circle"
	ShapeTypeTriangle  ShapeType = "triangle"
	ShapeTypeText      ShapeType = "text"
)

type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

type FontStyle string

const (
	FontStyleNormal FontStyle = "normal"
	FontStyleItalic FontStyle = "italic"
)

type TextDecoration string

const (
	TextDecorationNone      TextDecoration = "none"
	TextDecorationUnderline TextDecoration = "underline"
)

// Shape is one drawable object on the shared canvas. Lock metadata lives on
// the shape record itself; a lock whose locked_at is older than the configured
// timeout is expired from every reader's point of view even though the fields
// are not eagerly cleared.
type Shape struct {
	ID   string    `json:"id"`
	Type ShapeType `json:"type"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Radius   float64 `json:"radius,omitempty"`
	Rotation float64 `json:"rotation"`

	Color          string         `json:"color"`
	FontSize       float64        `json:"font_size,omitempty"`
	FontWeight     FontWeight     `json:"font_weight,omitempty"`
	FontStyle      FontStyle      `json:"font_style,omitempty"`
	TextDecoration TextDecoration `json:"text_decoration,omitempty"`
	Text           string         `json:"text,omitempty"`

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

// Locked reports whether the shape carries a live geometry lock at the given
// instant, treating locks older than timeout as released.
func (s *Shape) Locked(now time.Time, timeout time.Duration) bool {
	if s.LockedBy == nil || s.LockedAt == nil {
		return false
	}
	return now.Sub(*s.LockedAt) < timeout
}

// LockedByOther reports whether a different user holds a live geometry lock.
func (s *Shape) LockedByOther(userID string, now time.Time, timeout time.Duration) bool {
	return s.Locked(now, timeout) && *s.LockedBy != userID
}

// EditLocked is the text-editing analog of Locked, fully independent of the
// geometry lock.
func (s *Shape) EditLocked(now time.Time, timeout time.Duration) bool {
	if s.EditingBy == nil || s.EditingAt == nil {
		return false
	}
	return now.Sub(*s.EditingAt) < timeout
}

type CreateShapeRequest struct {
	Type     ShapeType `json:"type" validate:"required,oneof=rectangle circle triangle text"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width" validate:"required,gt=0"`
	Height   float64   `json:"height" validate:"required,gt=0"`
	Rotation float64   `json:"rotation"`
	Color    string    `json:"color" validate:"required,hexcolor"`

	FontSize       float64        `json:"font_size,omitempty"`
	FontWeight     FontWeight     `json:"font_weight,omitempty" validate:"omitempty,oneof=normal bold"`
	FontStyle      FontStyle      `json:"font_style,omitempty" validate:"omitempty,oneof=normal italic"`
	TextDecoration TextDecoration `json:"text_decoration,omitempty" validate:"omitempty,oneof=none underline"`
	Text           string         `json:"text,omitempty"`
}

// UpdateShapeRequest is a field-level merge: nil fields are left untouched.
// The store does not check lock ownership; callers are expected to verify
// locked_by before issuing an update.
type UpdateShapeRequest struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Rotation *float64 `json:"rotation"`
	Color    *string  `json:"color" validate:"omitempty,hexcolor"`

	FontSize       *float64        `json:"font_size"`
	FontWeight     *FontWeight     `json:"font_weight" validate:"omitempty,oneof=normal bold"`
	FontStyle      *FontStyle      `json:"font_style" validate:"omitempty,oneof=normal italic"`
	TextDecoration *TextDecoration `json:"text_decoration" validate:"omitempty,oneof=none underline"`
	Text           *string         `json:"text"`
}

// Fields flattens the request into the partial-merge map handed to the
// repository. Width/height changes keep a circle's radius in sync.
func (r *UpdateShapeRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.X != nil {
		fields["x"] = *r.X
	}
	if r.Y != nil {
		fields["y"] = *r.Y
	}
	if r.Width != nil {
		fields["width"] = *r.Width
	}
	if r.Height != nil {
		fields["height"] = *r.Height
	}
	if r.Rotation != nil {
		fields["rotation"] = *r.Rotation
	}
	if r.Color != nil {
		fields["color"] = *r.Color
	}
	if r.FontSize != nil {
		fields["font_size"] = *r.FontSize
	}
	if r.FontWeight != nil {
		fields["font_weight"] = string(*r.FontWeight)
	}
	if r.FontStyle != nil {
		fields["font_style"] = string(*r.FontStyle)
	}
	if r.TextDecoration != nil {
		fields["text_decoration"] = string(*r.TextDecoration)
	}
	if r.Text != nil {
		fields["text"] = *r.Text
	}
	return fields
}
