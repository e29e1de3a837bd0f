package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrEmptySheet = errors.New("pdf_empty_sheet")

type PDFProvider struct{}

func NewPDFProvider() *PDFProvider {
	return &PDFProvider{}
}

// GenerateVoucherCards renders the invoice QR followed by one row per voucher.
func (p *PDFProvider) GenerateVoucherCards(ctx context.Context, sheet CardSheet) ([]byte, error) {
	if len(sheet.Cards) == 0 || sheet.Token == "" {
		return nil, ErrEmptySheet
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Bonos de reencauche", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, sheet.PartnerName, props.Text{
			Size:  10,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(50,
		col.New(7).Add(
			text.New("Factura: "+sheet.InvoiceNumber, props.Text{Top: 2}),
			text.New("Cliente: "+sheet.CustomerName, props.Text{Top: 8}),
			text.New("Emitido: "+sheet.IssuedOn, props.Text{Top: 14}),
			text.New("Presente este código en el taller para activar o canjear sus bonos.", props.Text{Top: 24, Size: 8}),
		),
		code.NewQrCol(5, sheet.Token, props.Rect{
			Center:  true,
			Percent: 95,
		}),
	)

	m.AddRow(10,
		text.NewCol(5, "Bono", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Producto", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Rin", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Estado", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, card := range sheet.Cards {
		m.AddRow(8,
			text.NewCol(5, card.VoucherID, props.Text{Size: 9}),
			text.NewCol(4, card.Product, props.Text{Size: 9}),
			text.NewCol(2, card.RimSize, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, card.Status, props.Text{Size: 8, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
