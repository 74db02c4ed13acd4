package domain

import "context"

type CreateRequest struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

// OwnershipShare is one slice of a field's ownership split.
type OwnershipShare struct {
	OwnerID    string  `json:"owner_id"`
	Percentage float64 `json:"percentage"`
}

type FieldDetail struct {
	Field
	Ownerships []FieldOwnership `json:"ownerships"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Field, error)
	Get(ctx context.Context, id string) (*FieldDetail, error)
	List(ctx context.Context) ([]Field, error)
	// SetOwnership replaces the field's split atomically. The shares must
	// sum to 100 percent; a partial split would make usage weighting
	// under- or over-count the field.
	SetOwnership(ctx context.Context, fieldID string, shares []OwnershipShare) ([]FieldOwnership, error)
}
