package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVoucherCards(t *testing.T) {
	doc, err := NewPDFProvider().GenerateVoucherCards(context.Background(), CardSheet{
		InvoiceNumber: "FAC-1001",
		PartnerName:   "Llantas Norte",
		CustomerName:  "Reencauches Sur",
		IssuedOn:      "2026-03-01",
		Token:         "v1.example",
		Cards: []Card{
			{VoucherID: "1", Product: "HAOHUA 15 HT1", RimSize: "22.5", Status: "PENDING"},
			{VoucherID: "2", Product: "HAOHUA 15 HT1", RimSize: "22.5", Status: "PENDING"},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateVoucherCardsRejectsEmptySheet(t *testing.T) {
	_, err := NewPDFProvider().GenerateVoucherCards(context.Background(), CardSheet{InvoiceNumber: "FAC-1"})
	assert.ErrorIs(t, err, ErrEmptySheet)
}
