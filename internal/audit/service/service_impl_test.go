package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/audit/repository"
	"github.com/smallbiznis/bonos/internal/clock"
	obscontext "github.com/smallbiznis/bonos/internal/observability/context"
	"github.com/smallbiznis/bonos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, db, clk
}

func TestRecordUsesContextActorAndMasksMetadata(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "mayorista", "u-7")
	ctx = obscontext.WithPartnerID(ctx, "100")

	err := svc.Record(ctx, nil, auditdomain.Event{
		Action:     "partner.upsert",
		TargetType: auditdomain.TargetPartner,
		TargetID:   "100",
		Metadata:   map[string]any{"name": "Llantas del Norte", "email": "ventas@llantas.example"},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	entry := resp.AuditLogs[0]
	assert.Equal(t, "mayorista", entry.ActorRole)
	assert.Equal(t, "u-7", entry.ActorID)
	require.NotNil(t, entry.PartnerID)
	assert.Equal(t, snowflake.ID(100), *entry.PartnerID)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "Llantas del Norte", entry.Metadata["name"])
	assert.Equal(t, "****mple", entry.Metadata["email"])
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	svc, db, _ := newTestService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(context.Background(), tx, auditdomain.Event{
			ActorRole:  "reencauche",
			ActorID:    "r-1",
			Action:     "voucher.reject",
			TargetType: auditdomain.TargetVoucher,
			TargetID:   "55",
		}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.AuditLogs)
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Record(context.Background(), nil, auditdomain.Event{TargetType: auditdomain.TargetVoucher})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, _, clk := newTestService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(context.Background(), nil, auditdomain.Event{
			ActorRole:  "system",
			Action:     "voucher.expire",
			TargetType: auditdomain.TargetVoucher,
		}))
		clk.Advance(time.Minute)
	}

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2
	first, err := svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Greater(t, first.AuditLogs[0].ID, first.AuditLogs[1].ID)

	req.PageToken = first.NextPageToken
	second, err := svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Less(t, second.AuditLogs[0].ID, first.AuditLogs[1].ID)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	start := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
