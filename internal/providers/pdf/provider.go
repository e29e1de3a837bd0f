package pdf

import "context"

//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks

// Card is one printable voucher.
type Card struct {
	VoucherID string
	Product   string
	RimSize   string
	Status    string
}

// CardSheet is the voucher-card document for one invoice. Token is the
// invoice QR payload printed on the sheet.
type CardSheet struct {
	InvoiceNumber string
	PartnerName   string
	CustomerName  string
	IssuedOn      string
	Token         string
	Cards         []Card
}

type Provider interface {
	GenerateVoucherCards(ctx context.Context, sheet CardSheet) ([]byte, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateVoucherCards(ctx context.Context, sheet CardSheet) ([]byte, error) {
	return nil, nil
}
