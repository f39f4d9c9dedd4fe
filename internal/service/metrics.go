package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

// Submission describes an accepted metrics payload.
type Submission struct {
	ID          string         `json:"id"`
	EntryID     string         `json:"entryId"`
	VersionName string         `json:"versionName"`
	Platform    domain.Partner `json:"platform"`
	Key         string         `json:"key"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// SubmitExecutionMetrics stores the raw payload as a blob and merges its
// summary into the partner row and the ALL row of the version.
func (s *Service) SubmitExecutionMetrics(ctx context.Context, actor domain.Actor, entryID, versionName, platform string, req domain.ExecutionsRequest, description string) (Submission, error) {
	p, err := parseSubmissionPlatform(platform)
	if err != nil {
		return Submission{}, err
	}
	batch, err := req.Summarize()
	if err != nil {
		return Submission{}, err
	}

	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return Submission{}, err
	}
	if _, ok := entry.Version(versionName); !ok {
		return Submission{}, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
	}

	at := s.clock()
	sub := Submission{
		ID:          s.newID(),
		EntryID:     entryID,
		VersionName: versionName,
		Platform:    p,
		SubmittedAt: at,
	}
	sub.Key = blob.ObjectKey(entry.TRSID(), versionName, p, blob.FileName(at, sub.ID))

	body, err := json.Marshal(req)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to encode submission: %w", err)
	}
	if err := s.blobs.Put(ctx, blob.Object{
		Key:         sub.Key,
		Owner:       actor.Username,
		Description: description,
		Body:        body,
	}); err != nil {
		return Submission{}, fmt.Errorf("failed to store raw metrics: %w", err)
	}

	if err := s.repo.SubmitMetrics(ctx, entryID, versionName, p, batch, at); err != nil {
		s.logger.Warn("metrics merge failed after blob write",
			logger.String("key", sub.Key),
			logger.String("code", domain.Code(err)),
			logger.Error(err),
		)
		return Submission{}, err
	}
	s.partners.Invalidate(entryID)

	s.logger.Info("metrics submitted",
		logger.String("entry", entryID),
		logger.String("version", versionName),
		logger.String("platform", p.String()),
		logger.String("user", actor.Username),
		logger.Int("runs", len(req.RunExecutions)),
		logger.Int("validations", len(req.ValidationExecutions)),
	)
	return sub, nil
}

func parseSubmissionPlatform(platform string) (domain.Partner, error) {
	p, err := domain.ParsePartner(platform)
	if err != nil {
		return "", err
	}
	if !p.IsActualPartner() {
		return "", domain.NewValidationError("platform", "%s is computed and cannot receive submissions", p)
	}
	return p, nil
}

// GetAggregatedMetrics returns every partner row plus the ALL rollup.
func (s *Service) GetAggregatedMetrics(ctx context.Context, entryID, versionName string) (domain.VersionMetrics, error) {
	return s.repo.GetVersionMetrics(ctx, entryID, versionName)
}

// GetPartnerMetrics returns a single row. ALL is accepted here.
func (s *Service) GetPartnerMetrics(ctx context.Context, entryID, versionName, platform string) (*domain.Metrics, error) {
	p, err := domain.ParsePartner(platform)
	if err != nil {
		return nil, err
	}
	return s.repo.GetPartnerMetrics(ctx, entryID, versionName, p)
}

// GetExecutionMetricPartners never contains ALL. Unknown entries have no partners.
func (s *Service) GetExecutionMetricPartners(ctx context.Context, entryID string) (domain.PartnerSet, error) {
	sets, err := s.partnerSets(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return sets.Execution, nil
}

// GetValidationMetricPartners never contains ALL. Unknown entries have no partners.
func (s *Service) GetValidationMetricPartners(ctx context.Context, entryID string) (domain.PartnerSet, error) {
	sets, err := s.partnerSets(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return sets.Validation, nil
}

// MetricsFile is one raw submission as listed from the blob store.
type MetricsFile struct {
	Key          string         `json:"key"`
	Platform     domain.Partner `json:"platform"`
	File         string         `json:"file"`
	Size         int64          `json:"size"`
	LastModified time.Time      `json:"lastModified,omitzero"`
}

// ListMetricsFiles lists the raw submissions of a version across platforms.
func (s *Service) ListMetricsFiles(ctx context.Context, entryID, versionName string) ([]MetricsFile, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, ok := entry.Version(versionName); !ok {
		return nil, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
	}
	infos, err := s.blobs.List(ctx, entry.TRSID(), versionName)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw metrics: %w", err)
	}
	files := make([]MetricsFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, MetricsFile{
			Key:          info.Key,
			Platform:     info.Platform,
			File:         info.File,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	return files, nil
}

// GetMetricsFile returns a raw submission body. The key must belong to the version.
func (s *Service) GetMetricsFile(ctx context.Context, entryID, versionName, key string) (blob.Object, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return blob.Object{}, err
	}
	if !strings.HasPrefix(key, blob.VersionPrefix(entry.TRSID(), versionName)) {
		return blob.Object{}, domain.NewValidationError("key", "object %s does not belong to %s:%s", key, entryID, versionName)
	}
	obj, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrObjectNotFound) {
		return blob.Object{}, &domain.NotFoundError{Kind: "object", Identity: key}
	}
	return obj, err
}
