package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Owner, error)
	Get(ctx context.Context, id string) (*Owner, error)
	List(ctx context.Context) ([]Owner, error)
	// Delete refuses while the owner still has open debts on either side.
	Delete(ctx context.Context, id string) error
}

var (
	ErrOwnerNotFound = errors.New("owner_not_found")
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrOwnerHasDebts = errors.New("owner_has_open_debts")
)
