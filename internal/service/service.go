// Package service implements the operations exposed over HTTP and the CLI:
// metrics submission and reads, partner enumeration, and the entry/version
// lifecycle commands. Every mutation takes the acting user explicitly.
package service

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
	"github.com/google/uuid"
)

// Repository is the persistence the service needs. *redisstore.Store implements it.
type Repository interface {
	CreateEntry(ctx context.Context, e domain.Entry) (bool, error)
	GetEntry(ctx context.Context, id string) (domain.Entry, error)
	ListEntryIDs(ctx context.Context) ([]string, error)
	UpdateEntry(ctx context.Context, id string, fn func(domain.Entry) (domain.Entry, error)) (domain.Entry, error)

	SubmitMetrics(ctx context.Context, entryID, versionName string, p domain.Partner, b domain.Batch, at time.Time) error
	GetVersionMetrics(ctx context.Context, entryID, versionName string) (domain.VersionMetrics, error)
	GetPartnerMetrics(ctx context.Context, entryID, versionName string, p domain.Partner) (*domain.Metrics, error)

	index.PartnerLoader
}

type Service struct {
	repo     Repository
	blobs    blob.Store
	partners *index.PartnerIndex
	policy   *policy.Holder
	logger   logger.Logger

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the submission id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func New(repo Repository, blobs blob.Store, partners *index.PartnerIndex, pol *policy.Holder, log logger.Logger, opts ...Option) *Service {
	if blobs == nil {
		blobs = blob.Nop{}
	}
	if partners == nil {
		partners = index.NewPartnerIndex(repo, 0, 0)
	}
	if pol == nil {
		pol = policy.NewStaticHolder(policy.Default())
	}
	s := &Service{
		repo:     repo,
		blobs:    blobs,
		partners: partners,
		policy:   pol,
		logger:   log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy exposes the precedence tables currently in effect.
func (s *Service) Policy() policy.Policy {
	return s.policy.Current()
}

func (s *Service) BlobBackend() string {
	return s.blobs.Backend()
}

func (s *Service) partnerSets(ctx context.Context, entryID string) (index.PartnerSets, error) {
	return s.partners.Get(ctx, entryID)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
