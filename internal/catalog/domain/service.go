package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(ctx context.Context) []Entry
	// Lookup returns the catalog entry for spec. A non-empty RimSize must be
	// one of the entry's variants.
	Lookup(ctx context.Context, spec ProductSpec) (Entry, error)
}

var (
	ErrInvalidSpec = errors.New("invalid_product_spec")
	ErrNotEligible = errors.New("product_not_eligible")
	ErrInvalidRim  = errors.New("invalid_rim_size")
)
