package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	"github.com/smallbiznis/bonos/internal/dispatch/domain"
	"github.com/smallbiznis/bonos/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bonos/internal/observability/metrics"
	"github.com/smallbiznis/bonos/internal/providers/email"
	"github.com/smallbiznis/bonos/internal/providers/pdf"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	channelEmail   = "email"
	templateIssued = "vouchers_issued"
	defaultTimeout = 10 * time.Second
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Tokens  qrtokendomain.Service
	PDF     pdf.Provider
	Email   email.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	enabled bool
	timeout time.Duration
	log     *zap.Logger
	clock   clock.Clock
	tokens  qrtokendomain.Service
	pdf     pdf.Provider
	email   email.Provider
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Dispatcher {
	timeout := p.Config.Dispatch.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		enabled: p.Config.Dispatch.Enabled,
		timeout: timeout,
		log:     p.Log.Named("dispatch.service"),
		clock:   p.Clock,
		tokens:  p.Tokens,
		pdf:     p.PDF,
		email:   p.Email,
		metrics: p.Metrics,
	}
}

// Dispatch mails the voucher cards of a committed issuance to the customer.
func (s *Service) Dispatch(ctx context.Context, batch domain.IssuedBatch) []string {
	if !s.enabled || len(batch.Vouchers) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	log := logger.WithContext(ctx, s.log).With(zap.String("invoice_number", batch.InvoiceNumber))

	recipient := strings.TrimSpace(batch.Customer.Email)
	if recipient == "" {
		s.metrics.RecordDispatch(ctx, channelEmail, outcomeSkipped)
		return []string{"customer has no email address; voucher cards were not sent"}
	}

	warn := func(stage string, err error) []string {
		log.Warn("voucher dispatch failed", zap.String("stage", stage), zap.Error(err))
		s.metrics.RecordDispatch(ctx, channelEmail, outcomeFailed)
		return []string{fmt.Sprintf("voucher cards not sent: %s failed", stage)}
	}

	token, err := s.tokens.MintForInvoice(ctx, batch.InvoiceNumber)
	if err != nil {
		return warn("token", err)
	}

	sheet := s.buildSheet(batch, token)
	doc, err := s.pdf.GenerateVoucherCards(ctx, sheet)
	if err != nil {
		return warn("pdf", err)
	}

	msg := email.Message{
		To:      []string{recipient},
		Subject: fmt.Sprintf("Bonos de reencauche - factura %s", batch.InvoiceNumber),
		Attachments: []email.Attachment{{
			Filename:    fmt.Sprintf("bonos-%s.pdf", batch.InvoiceNumber),
			ContentType: "application/pdf",
			Content:     doc,
		}},
	}
	if err := s.email.SendTemplate(ctx, msg, templateIssued, templateData(sheet)); err != nil {
		return warn("email", err)
	}

	log.Info("voucher cards sent", zap.Int("count", len(batch.Vouchers)))
	s.metrics.RecordDispatch(ctx, channelEmail, outcomeSent)
	return nil
}

func (s *Service) buildSheet(batch domain.IssuedBatch, token string) pdf.CardSheet {
	sheet := pdf.CardSheet{
		InvoiceNumber: batch.InvoiceNumber,
		CustomerName:  batch.Customer.Name,
		IssuedOn:      s.clock.Now().Format("2006-01-02"),
		Token:         token,
		Cards:         make([]pdf.Card, 0, len(batch.Vouchers)),
	}
	if batch.Partner != nil {
		sheet.PartnerName = batch.Partner.Name
	}
	for _, v := range batch.Vouchers {
		sheet.Cards = append(sheet.Cards, pdf.Card{
			VoucherID: v.ID.String(),
			Product:   v.Spec().String(),
			RimSize:   v.RimSize,
			Status:    string(v.Status),
		})
	}
	return sheet
}

type cardView struct {
	ID      string
	Product string
	RimSize string
}

func templateData(sheet pdf.CardSheet) map[string]any {
	cards := make([]cardView, 0, len(sheet.Cards))
	for _, c := range sheet.Cards {
		cards = append(cards, cardView{ID: c.VoucherID, Product: c.Product, RimSize: c.RimSize})
	}
	return map[string]any{
		"InvoiceNumber": sheet.InvoiceNumber,
		"CustomerName":  sheet.CustomerName,
		"PartnerName":   sheet.PartnerName,
		"Count":         len(cards),
		"Vouchers":      cards,
	}
}
