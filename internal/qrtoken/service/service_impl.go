package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	obsmetrics "github.com/smallbiznis/bonos/internal/observability/metrics"
	"github.com/smallbiznis/bonos/internal/qrtoken/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTokenLength = 2048

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Sealer  domain.Sealer
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	sealer  domain.Sealer
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("qrtoken.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		sealer:  p.Sealer,
		metrics: p.Metrics,
	}
}

// ProvideSealer builds the sealer from QR_TOKEN_SECRET. Outside production
// a missing secret falls back to a per-process random key.
func ProvideSealer(cfg config.Config, log *zap.Logger) (domain.Sealer, error) {
	secret := cfg.QRTokenSecret
	if strings.TrimSpace(secret) == "" {
		if cfg.IsProduction() {
			return nil, domain.ErrMissingSecret
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = base64.RawStdEncoding.EncodeToString(buf)
		log.Warn("QR_TOKEN_SECRET not set, tokens will not survive a restart")
	}
	return NewSealer(secret)
}

type payload struct {
	Kind  domain.Kind `json:"k"`
	Value string      `json:"v"`
	Nonce string      `json:"n"`
}

func (s *Service) MintForInvoice(ctx context.Context, invoiceNumber string) (string, error) {
	return s.mint(ctx, domain.KindInvoice, invoiceNumber)
}

func (s *Service) MintForMaster(ctx context.Context, master string) (string, error) {
	return s.mint(ctx, domain.KindMaster, master)
}

func (s *Service) mint(ctx context.Context, kind domain.Kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.ErrInvalidTarget
	}

	id := ulid.Make().String()
	body, err := json.Marshal(payload{Kind: kind, Value: value, Nonce: id})
	if err != nil {
		return "", err
	}
	token, err := s.sealer.Seal(snappy.Encode(nil, body))
	if err != nil {
		return "", err
	}

	record := domain.Record{
		ID:        s.genID.Generate(),
		TokenID:   id,
		TokenHash: hashToken(token),
		Kind:      kind,
		Value:     value,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		return "", err
	}

	s.metrics.RecordTokenMinted(ctx, string(kind))
	s.log.Debug("qr token minted", zap.String("kind", string(kind)), zap.String("token_id", id))
	return token, nil
}

// Resolve fails closed: any decoding, authentication or registry miss
// yields ErrInvalidToken and never a partial target.
func (s *Service) Resolve(ctx context.Context, token string) (domain.Target, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLength {
		return s.reject(ctx, "malformed")
	}

	compressed, err := s.sealer.Open(token)
	if err != nil {
		return s.reject(ctx, "unauthenticated")
	}
	body, err := snappy.Decode(nil, compressed)
	if err != nil {
		return s.reject(ctx, "malformed")
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return s.reject(ctx, "malformed")
	}
	if !p.Kind.Valid() || strings.TrimSpace(p.Value) == "" {
		return s.reject(ctx, "malformed")
	}
	if _, err := ulid.ParseStrict(p.Nonce); err != nil {
		return s.reject(ctx, "malformed")
	}

	record, err := s.repo.FindByHash(ctx, s.db, hashToken(token))
	if err != nil {
		return domain.Target{}, err
	}
	if record == nil || record.Kind != p.Kind || record.Value != p.Value || record.TokenID != p.Nonce {
		return s.reject(ctx, "unregistered")
	}

	return domain.Target{Kind: p.Kind, Value: p.Value}, nil
}

func (s *Service) reject(ctx context.Context, reason string) (domain.Target, error) {
	s.metrics.RecordTokenRejected(ctx, reason)
	return domain.Target{}, domain.ErrInvalidToken
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
