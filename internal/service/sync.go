package service

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

// EntryView is the projection of an entry after its derived metadata has
// been brought in line with its default version.
type EntryView struct {
	ID             string                `json:"id"`
	Kind           domain.EntryKind      `json:"kind"`
	Path           string                `json:"path"`
	IsPublished    bool                  `json:"isPublished"`
	WasEverPublic  bool                  `json:"wasEverPublic"`
	Archived       bool                  `json:"archived"`
	Description    string                `json:"description,omitempty"`
	Topic          string                `json:"topic,omitempty"`
	TopicSelection domain.TopicSelection `json:"topicSelection"`
	ConceptDoi     *domain.Doi           `json:"conceptDoi,omitempty"`
	DefaultVersion string                `json:"defaultVersion,omitempty"`
	Authors        []domain.Author       `json:"authors,omitempty"`
	OrcidAuthors   []string              `json:"orcidAuthors,omitempty"`
	Versions       []VersionView         `json:"versions"`

	ExecutionPartners  domain.PartnerSet `json:"executionPartners"`
	ValidationPartners domain.PartnerSet `json:"validationPartners"`

	Categories  []string  `json:"categories,omitempty"`
	Collections []string  `json:"collections,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

type VersionView struct {
	Name                         string               `json:"name"`
	Reference                    string               `json:"reference,omitempty"`
	ReferenceType                domain.ReferenceType `json:"referenceType"`
	Frozen                       bool                 `json:"frozen"`
	Hidden                       bool                 `json:"hidden"`
	DirtyBit                     bool                 `json:"dirtyBit"`
	Verified                     bool                 `json:"verified"`
	VerifiedPlatforms            domain.PartnerSet    `json:"verifiedPlatforms"`
	Doi                          *domain.Doi          `json:"doi,omitempty"`
	LatestMetricsSubmissionDate  *time.Time           `json:"latestMetricsSubmissionDate,omitempty"`
	LatestMetricsAggregationDate *time.Time           `json:"latestMetricsAggregationDate,omitempty"`
}

// Sync repairs a default version that points at a hidden or missing
// version, re-copies the description from the default, fills an unset topic
// selection from the policy and returns the resolved projection. The entry
// is written back only when one of those fields changed.
func (s *Service) Sync(ctx context.Context, entryID string) (EntryView, error) {
	pol := s.policy.Current()

	e, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return EntryView{}, err
	}
	if _, changed := syncEntry(e, pol.TopicOrder); changed {
		e, err = s.repo.UpdateEntry(ctx, entryID, func(cur domain.Entry) (domain.Entry, error) {
			next, _ := syncEntry(cur, pol.TopicOrder)
			return next, nil
		})
		if err != nil {
			return EntryView{}, err
		}
		s.logger.Debug("entry metadata synced",
			logger.String("entry", entryID),
			logger.String("default_version", e.DefaultVersion),
		)
	}

	sets, err := s.partnerSets(ctx, entryID)
	if err != nil {
		return EntryView{}, err
	}

	view := EntryView{
		ID:                 e.ID,
		Kind:               e.Kind,
		Path:               e.Path(),
		IsPublished:        e.IsPublished,
		WasEverPublic:      e.WasEverPublic,
		Archived:           e.Archived,
		Description:        e.Description,
		Topic:              e.Topic(),
		TopicSelection:     e.Topics.Selection,
		DefaultVersion:     e.DefaultVersion,
		Authors:            e.Authors(),
		OrcidAuthors:       e.OrcidAuthors(),
		Versions:           make([]VersionView, 0, len(e.Versions)),
		ExecutionPartners:  nonNil(sets.Execution),
		ValidationPartners: nonNil(sets.Validation),
		Categories:         e.Categories,
		Collections:        e.Collections,
		LastUpdated:        e.LastUpdated,
	}
	if d, ok := e.SelectedConceptDoi(pol.DoiPrecedence); ok {
		view.ConceptDoi = &d
	}
	for _, v := range e.Versions {
		vv := VersionView{
			Name:                         v.Name,
			Reference:                    v.Reference,
			ReferenceType:                v.ReferenceType,
			Frozen:                       v.Frozen,
			Hidden:                       v.Hidden,
			DirtyBit:                     v.DirtyBit,
			Verified:                     v.Verified(),
			VerifiedPlatforms:            nonNil(v.VerifiedPlatforms()),
			LatestMetricsSubmissionDate:  v.LatestMetricsSubmissionDate,
			LatestMetricsAggregationDate: v.LatestMetricsAggregationDate,
		}
		if d, ok := v.SelectedDoi(pol.DoiPrecedence); ok {
			vv.Doi = &d
		}
		view.Versions = append(view.Versions, vv)
	}
	return view, nil
}

func syncEntry(e domain.Entry, topicOrder []domain.TopicSelection) (domain.Entry, bool) {
	next, changed := domain.RepairDefaultVersion(e)
	synced := domain.SyncMetadataWithDefault(next)
	if synced.Description != next.Description {
		changed = true
	}
	if synced.Topics.Selection == "" {
		synced.Topics.Selection = synced.Topics.ChooseSelection(topicOrder)
		changed = true
	}
	return synced, changed
}

func nonNil(ps domain.PartnerSet) domain.PartnerSet {
	if ps == nil {
		return domain.PartnerSet{}
	}
	return ps
}
