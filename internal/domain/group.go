package domain

import "time"

// Group clusters two or more shapes that move, duplicate and delete together.
// Membership is double-booked: the group lists its member ids and every member
// shape carries the group id. The two records converge eventually, not
// transactionally.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	ShapeIDs  []string  `json:"shape_ids"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateGroupRequest struct {
	ShapeIDs []string `json:"shape_ids" validate:"required,min=2,dive,required"`
	Name     string   `json:"name,omitempty" validate:"omitempty,max=100"`
}

type MoveGroupRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type DuplicateGroupRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}
