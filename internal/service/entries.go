package service

import (
	"context"
	"strings"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

// RegisterEntry creates an entry unless one with the same id exists. The
// stored entry is returned either way; created reports whether it was new.
func (s *Service) RegisterEntry(ctx context.Context, actor domain.Actor, in domain.Entry) (domain.Entry, bool, error) {
	e, err := s.prepareEntry(in)
	if err != nil {
		return domain.Entry{}, false, err
	}
	e.LastUpdated = s.clock()

	created, err := s.repo.CreateEntry(ctx, e)
	if err != nil {
		return domain.Entry{}, false, err
	}
	if !created {
		existing, err := s.repo.GetEntry(ctx, e.ID)
		return existing, false, err
	}

	s.logger.Info("entry registered",
		logger.String("entry", e.ID),
		logger.String("kind", string(e.Kind)),
		logger.Int("versions", len(e.Versions)),
		logger.String("user", actor.Username),
	)
	return e, true, nil
}

// prepareEntry rebuilds in through the domain constructors so that shape,
// version names and DOI types are checked.
func (s *Service) prepareEntry(in domain.Entry) (domain.Entry, error) {
	e, err := domain.NewEntry(in.Kind, in.Tool, in.Workflow)
	if err != nil {
		return domain.Entry{}, err
	}
	if in.ID != "" && in.ID != e.ID {
		return domain.Entry{}, domain.NewValidationError("id", "id %q does not match %q", in.ID, e.ID)
	}

	e = e.SetPublished(in.IsPublished || in.WasEverPublic)
	e.IsPublished = in.IsPublished
	e.Archived = in.Archived
	e.GitURL = in.GitURL
	e.Description = in.Description
	e.Topics = in.Topics
	e.Categories = dedupe(in.Categories)
	e.Collections = dedupe(in.Collections)

	if len(in.ConceptDOIs) > 0 {
		e.ConceptDOIs = domain.DoiMap{}
		for initiator, d := range in.ConceptDOIs {
			if d.Initiator == "" {
				d.Initiator = initiator
			}
			if err := e.ConceptDOIs.Put(d, domain.DoiTypeConcept); err != nil {
				return domain.Entry{}, err
			}
		}
	}
	if in.DoiSelection != nil {
		if e, err = e.SetDoiSelection(*in.DoiSelection); err != nil {
			return domain.Entry{}, err
		}
	}

	for _, v := range in.Versions {
		if len(v.DOIs) > 0 {
			dois := domain.DoiMap{}
			for initiator, d := range v.DOIs {
				if d.Initiator == "" {
					d.Initiator = initiator
				}
				if err := dois.Put(d, domain.DoiTypeVersion); err != nil {
					return domain.Entry{}, err
				}
			}
			v.DOIs = dois
		}
		if v.Frozen {
			if v, err = domain.Freeze(v); err != nil {
				return domain.Entry{}, err
			}
		}
		if e, err = e.AddVersion(v); err != nil {
			return domain.Entry{}, err
		}
	}

	if e.Topics.Selection == "" {
		e.Topics.Selection = e.Topics.ChooseSelection(s.policy.Current().TopicOrder)
	} else if e, err = e.SetTopicSelection(e.Topics.Selection); err != nil {
		return domain.Entry{}, err
	}

	if in.DefaultVersion != "" {
		next, ok, err := domain.CheckAndSetDefaultVersion(e, in.DefaultVersion)
		if err != nil {
			return domain.Entry{}, err
		}
		if !ok {
			return domain.Entry{}, domain.NewValidationError("defaultVersion", "no version named %q", in.DefaultVersion)
		}
		e = next
	}
	return e, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// GetEntry returns the stored entry without syncing it.
func (s *Service) GetEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// SetDefaultVersion points the entry at versionName. Hidden versions are
// rejected; an unknown name is a NotFoundError and changes nothing.
func (s *Service) SetDefaultVersion(ctx context.Context, actor domain.Actor, entryID, versionName string) (domain.Entry, error) {
	e, err := s.repo.UpdateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		next, ok, err := domain.CheckAndSetDefaultVersion(e, versionName)
		if err != nil {
			return e, err
		}
		if !ok {
			return e, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
		}
		next.LastUpdated = s.clock()
		return next, nil
	})
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("default version set",
		logger.String("entry", entryID),
		logger.String("version", versionName),
		logger.String("user", actor.Username),
	)
	return e, nil
}

// FreezeVersion freezes the version and its source files. A version without
// files cannot be frozen.
func (s *Service) FreezeVersion(ctx context.Context, actor domain.Actor, entryID, versionName string) (domain.Version, error) {
	return s.mutateVersion(ctx, actor, entryID, versionName, "version frozen", func(v domain.Version) (domain.Version, error) {
		return domain.Freeze(v)
	})
}

// UpdateVersion applies the user-editable fields of a version.
func (s *Service) UpdateVersion(ctx context.Context, actor domain.Actor, entryID, versionName string, u domain.VersionUpdate) (domain.Version, error) {
	return s.mutateVersion(ctx, actor, entryID, versionName, "version updated", func(v domain.Version) (domain.Version, error) {
		return domain.UpdateByUser(v, u)
	})
}

func (s *Service) SetVersionHidden(ctx context.Context, actor domain.Actor, entryID, versionName string, hidden bool) (domain.Version, error) {
	return s.UpdateVersion(ctx, actor, entryID, versionName, domain.VersionUpdate{Hidden: &hidden})
}

// mutateVersion runs fn on the stored version and clears the entry default
// when the version it names became hidden.
func (s *Service) mutateVersion(ctx context.Context, actor domain.Actor, entryID, versionName, event string, fn func(domain.Version) (domain.Version, error)) (domain.Version, error) {
	var out domain.Version
	_, err := s.repo.UpdateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		v, ok := e.Version(versionName)
		if !ok {
			return e, &domain.NotFoundError{Kind: "version", Identity: entryID + ":" + versionName}
		}
		next, err := fn(v)
		if err != nil {
			return e, err
		}
		next.LastModified = s.clock()
		next.UpdatedBy = actor.Username

		e, err = e.ReplaceVersion(next)
		if err != nil {
			return e, err
		}
		e, _ = domain.RepairDefaultVersion(e)
		out = next
		return e, nil
	})
	if err != nil {
		return domain.Version{}, err
	}
	s.logger.Info(event,
		logger.String("entry", entryID),
		logger.String("version", versionName),
		logger.Bool("frozen", out.Frozen),
		logger.Bool("hidden", out.Hidden),
		logger.String("user", actor.Username),
	)
	return out, nil
}

// SetDoiSelection overrides the concept DOI precedence for one entry.
func (s *Service) SetDoiSelection(ctx context.Context, actor domain.Actor, entryID, initiator string) (domain.Entry, error) {
	sel, err := domain.ParseDoiInitiator(initiator)
	if err != nil {
		return domain.Entry{}, err
	}
	e, err := s.updateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		return e.SetDoiSelection(sel)
	})
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("doi selection set",
		logger.String("entry", entryID),
		logger.String("initiator", string(sel)),
		logger.String("user", actor.Username),
	)
	return e, nil
}

func (s *Service) SetTopicSelection(ctx context.Context, actor domain.Actor, entryID, selection string) (domain.Entry, error) {
	sel, err := domain.ParseTopicSelection(selection)
	if err != nil {
		return domain.Entry{}, err
	}
	e, err := s.updateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		return e.SetTopicSelection(sel)
	})
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("topic selection set",
		logger.String("entry", entryID),
		logger.String("selection", string(sel)),
		logger.String("user", actor.Username),
	)
	return e, nil
}

func (s *Service) SetPublished(ctx context.Context, actor domain.Actor, entryID string, published bool) (domain.Entry, error) {
	e, err := s.updateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		return e.SetPublished(published), nil
	})
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("entry publication changed",
		logger.String("entry", entryID),
		logger.Bool("published", published),
		logger.String("user", actor.Username),
	)
	return e, nil
}

// updateEntry stamps LastUpdated on every successful change.
func (s *Service) updateEntry(ctx context.Context, entryID string, fn func(domain.Entry) (domain.Entry, error)) (domain.Entry, error) {
	return s.repo.UpdateEntry(ctx, entryID, func(e domain.Entry) (domain.Entry, error) {
		next, err := fn(e)
		if err != nil {
			return e, err
		}
		next.LastUpdated = s.clock()
		return next, nil
	})
}
