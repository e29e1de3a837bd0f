package domain

import (
	"context"
	"errors"
)

// Sealer is the cryptographic capability behind tokens. Open must fail on
// any input Seal did not produce with the same key.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(token string) ([]byte, error)
}

type Service interface {
	MintForInvoice(ctx context.Context, invoiceNumber string) (string, error)
	MintForMaster(ctx context.Context, master string) (string, error)
	Resolve(ctx context.Context, token string) (Target, error)
}

var (
	ErrInvalidToken  = errors.New("invalid_token")
	ErrInvalidTarget = errors.New("invalid_token_target")
	ErrMissingSecret = errors.New("qr_token_secret_required")
)
