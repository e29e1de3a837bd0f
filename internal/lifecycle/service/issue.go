package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	dispatchdomain "github.com/smallbiznis/bonos/internal/dispatch/domain"
	"github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability/logger"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errBatchRejected = errors.New("issue batch rejected")

type plannedLine struct {
	index int
	spec  catalogdomain.ProductSpec
	qty   int
}

type reservation struct {
	key allocationdomain.Key
	qty int
}

type lineFailure struct {
	failure domain.LineFailure
	key     *allocationdomain.Key
	err     error
}

func (s *Service) Issue(ctx context.Context, actor domain.Actor, req domain.IssueRequest) (domain.IssueResult, error) {
	res, err := s.issue(ctx, actor, "issue", req.CustomerID, req.InvoiceNumber, []domain.BatchLine{{Spec: req.Spec, Quantity: 1}})
	if err != nil {
		return domain.IssueResult{}, err
	}
	return domain.IssueResult{Voucher: res.Vouchers[0], Warnings: res.Warnings}, nil
}

func (s *Service) IssueBatch(ctx context.Context, actor domain.Actor, req domain.IssueBatchRequest) (domain.IssueBatchResult, error) {
	return s.issue(ctx, actor, "issue_batch", req.CustomerID, req.InvoiceNumber, req.Items)
}

func (s *Service) issue(ctx context.Context, actor domain.Actor, operation string, customerID snowflake.ID, invoiceNumber string, lines []domain.BatchLine) (result domain.IssueBatchResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, operation, started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherIssue); err != nil {
		return domain.IssueBatchResult{}, err
	}
	invoice := strings.TrimSpace(invoiceNumber)
	if invoice == "" {
		return domain.IssueBatchResult{}, fmt.Errorf("%w: invoice number is required", domain.ErrInvalidRequest)
	}
	if len(lines) == 0 {
		return domain.IssueBatchResult{}, domain.ErrEmptyBatch
	}
	customer, err := s.partners.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.IssueBatchResult{}, err
	}
	if !inScope(actor, customer.MayoristaID, customer.ID) {
		return domain.IssueBatchResult{}, domain.ErrUnauthorized
	}

	planned, failures := s.planLines(ctx, lines)
	if len(failures) > 0 {
		return batchFailure(failures)
	}

	var created []voucherdomain.Voucher
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		created = created[:0]
		var reserved []reservation
		for _, line := range planned {
			key, err := s.ledger.ResolveKey(ctx, tx, customer.MayoristaID, customer.ID, line.spec)
			if err == nil {
				err = s.ledger.Reserve(ctx, tx, key, line.qty)
			}
			if errors.Is(err, allocationdomain.ErrInsufficientAllocation) {
				k := key
				failures = append(failures, newLineFailure(line.index, line.spec, line.qty, err, &k))
				continue
			}
			if err != nil {
				return err
			}
			reserved = append(reserved, reservation{key: key, qty: line.qty})

			for n := 0; n < line.qty; n++ {
				v := voucherdomain.Voucher{
					ID:            s.genID.Generate(),
					MayoristaID:   customer.MayoristaID,
					CustomerID:    customer.ID,
					Brand:         line.spec.Brand,
					Size:          line.spec.Size,
					Design:        line.spec.Design,
					RimSize:       line.spec.RimSize,
					InvoiceNumber: invoice,
					Status:        voucherdomain.StatusPending,
				}
				if err := s.vouchers.Create(ctx, tx, &v); err != nil {
					return err
				}
				created = append(created, v)
			}
		}
		if len(failures) == 0 {
			ids := make([]string, 0, len(created))
			for _, v := range created {
				ids = append(ids, v.ID.String())
			}
			return s.record(ctx, tx, actor, authorization.ActionVoucherIssue, auditdomain.TargetInvoice, invoice, map[string]any{
				"customer_id": customer.ID.String(),
				"voucher_ids": ids,
			})
		}
		for _, r := range reserved {
			if err := s.ledger.Release(ctx, tx, r.key, r.qty); err != nil {
				return err
			}
		}
		return errBatchRejected
	})
	if errors.Is(err, errBatchRejected) {
		for i := range failures {
			f := &failures[i]
			s.metrics.RecordAllocationDenied(ctx, f.failure.Spec.Brand, f.failure.Spec.Size)
			if f.key == nil {
				continue
			}
			if balance, qerr := s.ledger.Query(ctx, *f.key); qerr == nil {
				available := balance.Available
				f.failure.Available = &available
			}
		}
		return batchFailure(failures)
	}
	if err != nil {
		return domain.IssueBatchResult{}, err
	}

	log := logger.WithContext(ctx, s.log)
	log.Info("vouchers issued",
		zap.String("customer_id", customer.ID.String()),
		zap.String("invoice_number", invoice),
		zap.Int("count", len(created)),
	)
	s.metrics.RecordTransition(ctx, operation, string(voucherdomain.StatusPending), len(created))

	result = domain.IssueBatchResult{Vouchers: created, Failures: []domain.LineFailure{}}
	result.Warnings = s.dispatch(ctx, invoice, customer, created)
	return result, nil
}

// planLines validates every line against the catalog before any quota is touched.
func (s *Service) planLines(ctx context.Context, lines []domain.BatchLine) ([]plannedLine, []lineFailure) {
	planned := make([]plannedLine, 0, len(lines))
	var failures []lineFailure
	for i, line := range lines {
		spec := line.Spec.Normalize()
		if line.Quantity <= 0 {
			failures = append(failures, newLineFailure(i, spec, line.Quantity, allocationdomain.ErrInvalidQuantity, nil))
			continue
		}
		if _, err := s.catalog.Lookup(ctx, spec); err != nil {
			failures = append(failures, newLineFailure(i, spec, line.Quantity, err, nil))
			continue
		}
		planned = append(planned, plannedLine{index: i, spec: spec, qty: line.Quantity})
	}
	return planned, failures
}

func (s *Service) dispatch(ctx context.Context, invoice string, customer partnerdomain.Customer, created []voucherdomain.Voucher) []string {
	if s.dispatcher == nil || len(created) == 0 {
		return nil
	}
	batch := dispatchdomain.IssuedBatch{
		InvoiceNumber: invoice,
		Customer:      customer,
		Vouchers:      created,
	}
	if partner, err := s.partners.GetPartner(ctx, customer.MayoristaID); err == nil {
		batch.Partner = &partner
	}
	return s.dispatcher.Dispatch(ctx, batch)
}

func newLineFailure(index int, spec catalogdomain.ProductSpec, requested int, err error, key *allocationdomain.Key) lineFailure {
	return lineFailure{
		failure: domain.LineFailure{
			Line:      index,
			Spec:      spec,
			Requested: requested,
			ErrorKind: domain.Kind(err),
			Message:   err.Error(),
		},
		key: key,
		err: err,
	}
}

func batchFailure(failures []lineFailure) (domain.IssueBatchResult, error) {
	out := domain.IssueBatchResult{
		Vouchers: []voucherdomain.Voucher{},
		Failures: make([]domain.LineFailure, 0, len(failures)),
	}
	for _, f := range failures {
		out.Failures = append(out.Failures, f.failure)
	}
	sort.SliceStable(out.Failures, func(i, j int) bool { return out.Failures[i].Line < out.Failures[j].Line })
	first := failures[0]
	for _, f := range failures {
		if f.failure.Line < first.failure.Line {
			first = f
		}
	}
	return out, fmt.Errorf("line %d: %w", first.failure.Line, first.err)
}
