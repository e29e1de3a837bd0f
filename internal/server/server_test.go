package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogservice "github.com/smallbiznis/bonos/internal/catalog/service"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability"
	obsmetrics "github.com/smallbiznis/bonos/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	"github.com/smallbiznis/bonos/internal/ratelimit"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeLifecycle struct {
	lifecycledomain.Service

	actor      lifecycledomain.Actor
	invoice    string
	activation []lifecycledomain.ActivationRequest
	issueBatch lifecycledomain.IssueBatchRequest
	issue      lifecycledomain.IssueRequest
	cutoff     time.Time

	batchResult lifecycledomain.IssueBatchResult
	err         error
}

func (f *fakeLifecycle) Issue(ctx context.Context, actor lifecycledomain.Actor, req lifecycledomain.IssueRequest) (lifecycledomain.IssueResult, error) {
	f.actor, f.issue = actor, req
	if f.err != nil {
		return lifecycledomain.IssueResult{}, f.err
	}
	return lifecycledomain.IssueResult{Voucher: voucherdomain.Voucher{
		ID:            7,
		CustomerID:    req.CustomerID,
		InvoiceNumber: req.InvoiceNumber,
		Status:        voucherdomain.StatusPending,
	}}, nil
}

func (f *fakeLifecycle) IssueBatch(ctx context.Context, actor lifecycledomain.Actor, req lifecycledomain.IssueBatchRequest) (lifecycledomain.IssueBatchResult, error) {
	f.actor, f.issueBatch = actor, req
	return f.batchResult, f.err
}

func (f *fakeLifecycle) ActivateByInvoice(ctx context.Context, actor lifecycledomain.Actor, invoice string, items []lifecycledomain.ActivationRequest) (lifecycledomain.ActivateResult, error) {
	f.actor, f.invoice, f.activation = actor, invoice, items
	out := lifecycledomain.ActivateResult{}
	for _, item := range items {
		out.Items = append(out.Items, lifecycledomain.ItemResult{VoucherID: item.VoucherID, Success: true})
	}
	return out, f.err
}

func (f *fakeLifecycle) Verify(ctx context.Context, actor lifecycledomain.Actor, token string) (lifecycledomain.VerifyResult, error) {
	f.actor = actor
	if f.err != nil {
		return lifecycledomain.VerifyResult{}, f.err
	}
	return lifecycledomain.VerifyResult{Kind: qrtokendomain.KindInvoice, Value: "F-1"}, nil
}

func (f *fakeLifecycle) MintForInvoice(ctx context.Context, actor lifecycledomain.Actor, invoice string) (lifecycledomain.MintResult, error) {
	f.actor, f.invoice = actor, invoice
	return lifecycledomain.MintResult{}, f.err
}

func (f *fakeLifecycle) Reject(ctx context.Context, actor lifecycledomain.Actor, req lifecycledomain.RejectRequest) (lifecycledomain.RejectResult, error) {
	f.actor = actor
	return lifecycledomain.RejectResult{}, f.err
}

func (f *fakeLifecycle) ExpireBefore(ctx context.Context, actor lifecycledomain.Actor, cutoff time.Time) (lifecycledomain.ExpireResult, error) {
	f.actor, f.cutoff = actor, cutoff
	return lifecycledomain.ExpireResult{Cutoff: cutoff, Expired: 2}, f.err
}

type fakePartners struct {
	partnerdomain.Service
	partners map[snowflake.ID]partnerdomain.BusinessPartner
}

func (f *fakePartners) GetPartner(ctx context.Context, id snowflake.ID) (partnerdomain.BusinessPartner, error) {
	p, ok := f.partners[id]
	if !ok {
		return partnerdomain.BusinessPartner{}, partnerdomain.ErrNotFound
	}
	return p, nil
}

func (f *fakePartners) UpsertPartner(ctx context.Context, req partnerdomain.UpsertPartnerRequest) (partnerdomain.BusinessPartner, error) {
	p := partnerdomain.BusinessPartner{ID: req.ID, Name: req.Name, Email: req.Email, Phone: req.Phone}
	if p.ID == 0 {
		p.ID = 300
	}
	f.partners[p.ID] = p
	return p, nil
}

type fakeAudit struct {
	events []auditdomain.Event
	req    auditdomain.ListAuditLogRequest
}

func (f *fakeAudit) Record(ctx context.Context, tx *gorm.DB, event auditdomain.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.req = req
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	out := auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}
	for i, e := range f.events {
		out.AuditLogs = append(out.AuditLogs, auditdomain.AuditLog{
			ID:         snowflake.ID(i + 1),
			Action:     e.Action,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
		})
	}
	return out, nil
}

type testServer struct {
	engine    *gin.Engine
	lifecycle *fakeLifecycle
	audit     *fakeAudit
}

func newTestServer(t *testing.T, limiter *ratelimit.VerifyLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	lifecycle := &fakeLifecycle{}
	audit := &fakeAudit{}
	engine := NewEngine(observability.Config{Environment: "test"}, obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry()))
	NewServer(ServerParams{
		Gin:       engine,
		Log:       zap.NewNop(),
		Lifecycle: lifecycle,
		CatalogSvc: catalogservice.New(catalogservice.Params{
			Holder: config.NewStaticCatalogConfigHolder(config.DefaultCatalogConfig()),
			Log:    zap.NewNop(),
		}),
		PartnerSvc: &fakePartners{partners: map[snowflake.ID]partnerdomain.BusinessPartner{
			100: {ID: 100, Name: "Llantas del Norte"},
			200: {ID: 200, Name: "Llantas del Sur"},
		}},
		AuthzSvc:      authz,
		AuditSvc:      audit,
		VerifyLimiter: limiter,
	})
	return &testServer{engine: engine, lifecycle: lifecycle, audit: audit}
}

type requestOpts struct {
	role      string
	actorID   string
	partnerID string
}

func (ts *testServer) do(t *testing.T, method, path string, body any, opts requestOpts) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if opts.role != "" {
		req.Header.Set(HeaderActorRole, opts.role)
	}
	if opts.actorID != "" {
		req.Header.Set(HeaderActorID, opts.actorID)
	}
	if opts.partnerID != "" {
		req.Header.Set(HeaderPartnerID, opts.partnerID)
	}

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var payload map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	}
	return w, payload
}

var mayorista = requestOpts{role: "MAYORISTA_USER", actorID: "u-1", partnerID: "100"}

func TestMissingActorIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodGet, "/api/v1/catalog", nil, requestOpts{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, lifecycledomain.KindUnauthorized, payload["errorKind"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/catalog", nil, requestOpts{role: "guest", actorID: "u-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListCatalog(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodGet, "/api/v1/catalog", nil, requestOpts{role: "cliente", actorID: "c-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]any)
	assert.Len(t, data["entries"], 3)
}

func TestIssueVoucherPassesActorAndRequest(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodPost, "/api/v1/vouchers", map[string]any{
		"customerId":    "42",
		"invoiceNumber": " F-001 ",
		"spec":          map[string]string{"brand": "haohua", "size": "15", "design": "ht1"},
	}, mayorista)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, payload["success"])

	assert.Equal(t, authorization.RoleMayorista, ts.lifecycle.actor.Role)
	assert.Equal(t, snowflake.ID(100), ts.lifecycle.actor.PartnerID)
	assert.Equal(t, "u-1", ts.lifecycle.actor.UserID)
	assert.Equal(t, snowflake.ID(42), ts.lifecycle.issue.CustomerID)
	assert.Equal(t, "F-001", ts.lifecycle.issue.InvoiceNumber)
	assert.Equal(t, "haohua", ts.lifecycle.issue.Spec.Brand)
}

func TestIssueVoucherValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodPost, "/api/v1/vouchers", map[string]any{
		"invoiceNumber": "F-001",
	}, mayorista)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, lifecycledomain.KindInvalidRequest, payload["errorKind"])
	errs := payload["errors"].([]any)
	require.NotEmpty(t, errs)
	assert.Equal(t, "customerId", errs[0].(map[string]any)["field"])
	assert.Equal(t, "invalid_customerId", errs[0].(map[string]any)["code"])
}

func TestActivationItemValidationUsesJSONNames(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodPost, "/api/v1/invoices/F-001/activations", map[string]any{
		"items": []map[string]any{{"master": "M-1", "item": "A"}},
	}, mayorista)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := payload["errors"].([]any)
	require.NotEmpty(t, errs)
	assert.Equal(t, "voucherId", errs[0].(map[string]any)["field"])
	assert.Equal(t, "voucherId is required", errs[0].(map[string]any)["message"])
}

func TestIssueBatchReportsFailures(t *testing.T) {
	ts := newTestServer(t, nil)
	available := 1
	ts.lifecycle.batchResult = lifecycledomain.IssueBatchResult{Failures: []lifecycledomain.LineFailure{{
		Line:      1,
		Requested: 3,
		Available: &available,
		ErrorKind: lifecycledomain.KindInsufficientAllocation,
	}}}
	ts.lifecycle.err = allocationdomain.ErrInsufficientAllocation

	w, payload := ts.do(t, http.MethodPost, "/api/v1/vouchers/batch", map[string]any{
		"customerId":    "42",
		"invoiceNumber": "F-002",
		"items": []map[string]any{
			{"spec": map[string]string{"brand": "HAOHUA", "size": "15", "design": "HT1"}, "quantity": 3},
		},
	}, mayorista)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, lifecycledomain.KindInsufficientAllocation, payload["errorKind"])

	data := payload["data"].(map[string]any)
	failures := data["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, float64(1), failures[0].(map[string]any)["available"])
	assert.Len(t, ts.lifecycle.issueBatch.Items, 1)
}

func TestActivateByInvoiceUsesPathInvoice(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodPost, "/api/v1/invoices/F-9/activations", map[string]any{
		"items": []map[string]any{
			{"voucherId": "11", "master": " M-1 ", "item": "1"},
			{"voucherId": "12", "master": "M-1", "item": "2"},
		},
	}, mayorista)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "F-9", ts.lifecycle.invoice)
	require.Len(t, ts.lifecycle.activation, 2)
	assert.Equal(t, "M-1", ts.lifecycle.activation[0].Master)
	assert.Equal(t, snowflake.ID(12), ts.lifecycle.activation[1].VoucherID)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{voucherdomain.ErrInvalidStateTransition, http.StatusConflict, lifecycledomain.KindInvalidStateTransition},
		{voucherdomain.ErrNotFound, http.StatusNotFound, lifecycledomain.KindNotFound},
		{lifecycledomain.ErrUnauthorized, http.StatusForbidden, lifecycledomain.KindUnauthorized},
		{qrtokendomain.ErrInvalidTarget, http.StatusBadRequest, lifecycledomain.KindInvalidRequest},
		{assert.AnError, http.StatusInternalServerError, lifecycledomain.KindInternal},
	}
	for _, tc := range cases {
		ts := newTestServer(t, nil)
		ts.lifecycle.err = tc.err

		w, payload := ts.do(t, http.MethodPost, "/api/v1/vouchers/5/rejection", map[string]any{"reason": "bead damage"},
			requestOpts{role: "reencauche", actorID: "r-1"})
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.kind, payload["errorKind"], tc.err.Error())
	}
}

func TestInternalErrorMessageIsHidden(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.lifecycle.err = assert.AnError

	_, payload := ts.do(t, http.MethodPost, "/api/v1/qr/invoices/F-1", nil, mayorista)
	assert.Equal(t, "internal server error", payload["message"])
}

func TestVerifyRateLimited(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{Verify: config.VerifyConfig{RatePerSecond: 0.5, Burst: 1}}
	limiter := ratelimit.NewVerifyLimiter(cfg, nil, clk, zap.NewNop())
	ts := newTestServer(t, limiter)
	opts := requestOpts{role: "reencauche", actorID: "r-1"}

	w, payload := ts.do(t, http.MethodGet, "/api/v1/verify/abc", nil, opts)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "F-1", payload["data"].(map[string]any)["value"])

	w, payload = ts.do(t, http.MethodGet, "/api/v1/verify/abc", nil, opts)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, kindRateLimited, payload["errorKind"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another caller has its own bucket.
	w, _ = ts.do(t, http.MethodGet, "/api/v1/verify/abc", nil, requestOpts{role: "reencauche", actorID: "r-2"})
	assert.Equal(t, http.StatusOK, w.Code)

	clk.Advance(2 * time.Second)
	w, _ = ts.do(t, http.MethodGet, "/api/v1/verify/abc", nil, opts)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPartnerViewIsScoped(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodGet, "/api/v1/partners/100", nil, mayorista)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Llantas del Norte", payload["data"].(map[string]any)["name"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/partners/200", nil, mayorista)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/partners/100", nil, requestOpts{role: "reencauche", actorID: "r-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/partners/200", nil, requestOpts{role: "admin", actorID: "a-1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExpireVouchersParsesCutoff(t *testing.T) {
	ts := newTestServer(t, nil)

	w, payload := ts.do(t, http.MethodPost, "/api/v1/admin/expirations", map[string]any{"before": "2025-01-31"},
		requestOpts{role: "system"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), payload["data"].(map[string]any)["expired"])
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), ts.lifecycle.cutoff)
	assert.Equal(t, authorization.RoleSystem, ts.lifecycle.actor.Role)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/admin/expirations", map[string]any{"before": "yesterday"},
		requestOpts{role: "system"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertPartnerIsAudited(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := requestOpts{role: "admin", actorID: "a-1"}

	w, payload := ts.do(t, http.MethodPost, "/api/v1/admin/partners", map[string]any{"name": " Llantas del Este "}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "300", payload["data"].(map[string]any)["id"])

	require.Len(t, ts.audit.events, 1)
	assert.Equal(t, authorization.ActionPartnerManage, ts.audit.events[0].Action)
	assert.Equal(t, "300", ts.audit.events[0].TargetID)

	w, payload = ts.do(t, http.MethodGet, "/api/v1/admin/audit-logs?action=partner.manage&start_at=2026-01-01", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	logs := payload["data"].(map[string]any)["auditLogs"].([]any)
	assert.Len(t, logs, 1)
	assert.Equal(t, "partner.manage", ts.audit.req.Action)
	require.NotNil(t, ts.audit.req.StartAt)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *ts.audit.req.StartAt)
}

func TestAuditLogsRequireAdmin(t *testing.T) {
	ts := newTestServer(t, nil)

	w, _ := ts.do(t, http.MethodGet, "/api/v1/admin/audit-logs", nil, mayorista)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/audit-logs?start_at=2026-02-01&end_at=2026-01-01", nil,
		requestOpts{role: "admin", actorID: "a-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
