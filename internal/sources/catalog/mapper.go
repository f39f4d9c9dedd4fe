package catalog

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

// Mapper converts catalog entries to domain entries. The result is not yet
// validated beyond kind and enum parsing; registration does the rest.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapEntries fails on the first malformed entry so a broken seed file is
// noticed instead of half applied.
func (m *Mapper) MapEntries(cat Catalog) ([]domain.Entry, error) {
	if len(cat.Entries) == 0 {
		return nil, fmt.Errorf("no entries found in catalog")
	}

	entries := make([]domain.Entry, 0, len(cat.Entries))
	for i, props := range cat.Entries {
		e, err := m.mapEntry(props)
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *Mapper) mapEntry(p EntryProps) (domain.Entry, error) {
	kind, err := domain.ParseEntryKind(p.Kind)
	if err != nil {
		return domain.Entry{}, err
	}

	e := domain.Entry{
		Kind:           kind,
		IsPublished:    p.Published,
		GitURL:         p.GitURL,
		Description:    p.Description,
		DefaultVersion: p.DefaultVersion,
		Categories:     p.Categories,
		Collections:    p.Collections,
		Topics: domain.Topics{
			Automatic: p.Topics.Automatic,
			Manual:    p.Topics.Manual,
			AI:        p.Topics.AI,
		},
	}
	if kind == domain.KindTool || kind == domain.KindAppTool {
		e.Tool = &domain.ToolDetails{
			Registry:  p.Registry,
			Namespace: p.Namespace,
			Name:      p.Name,
			ToolName:  p.ToolName,
		}
	} else {
		e.Workflow = &domain.WorkflowDetails{
			SourceControl:  p.SourceControl,
			Organization:   p.Organization,
			Repository:     p.Repository,
			WorkflowName:   p.WorkflowName,
			DescriptorType: p.DescriptorType,
		}
	}

	if p.Topics.Selection != "" {
		sel, err := domain.ParseTopicSelection(p.Topics.Selection)
		if err != nil {
			return domain.Entry{}, err
		}
		e.Topics.Selection = sel
	}

	if e.ConceptDOIs, err = mapDois(p.ConceptDOIs, domain.DoiTypeConcept); err != nil {
		return domain.Entry{}, err
	}

	for _, vp := range p.Versions {
		v, err := mapVersion(vp)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("version %q: %w", vp.Name, err)
		}
		e.Versions = append(e.Versions, v)
	}
	return e, nil
}

func mapVersion(p VersionProps) (domain.Version, error) {
	refType, err := parseReferenceType(p.ReferenceType)
	if err != nil {
		return domain.Version{}, err
	}
	v := domain.Version{
		Name:          p.Name,
		Reference:     p.Reference,
		ReferenceType: refType,
		CommitID:      p.CommitID,
		Description:   p.Description,
		Hidden:        p.Hidden,
		Frozen:        p.Frozen,
		Valid:         p.Valid,
	}
	for _, a := range p.Authors {
		v.Authors = append(v.Authors, domain.Author(a))
	}
	if v.DOIs, err = mapDois(p.DOIs, domain.DoiTypeVersion); err != nil {
		return domain.Version{}, err
	}
	for _, fp := range p.SourceFiles {
		f := domain.SourceFile{Path: fp.Path, Type: fp.Type}
		for _, name := range fp.VerifiedBy {
			partner, err := domain.ParsePartner(name)
			if err != nil {
				return domain.Version{}, err
			}
			if f.Verification == nil {
				f.Verification = make(map[domain.Partner]domain.Verification)
			}
			f.Verification[partner] = domain.Verification{Verified: true, Source: "catalog"}
		}
		v.SourceFiles = append(v.SourceFiles, f)
	}
	return v, nil
}

func mapDois(props []DoiProps, typ domain.DoiType) (domain.DoiMap, error) {
	if len(props) == 0 {
		return nil, nil
	}
	m := domain.DoiMap{}
	for _, p := range props {
		initiator, err := domain.ParseDoiInitiator(p.Initiator)
		if err != nil {
			return nil, err
		}
		if _, dup := m[initiator]; dup {
			return nil, domain.NewValidationError("doi", "more than one %s DOI", initiator)
		}
		if err := m.Put(domain.Doi{Name: p.Name, Type: typ, Initiator: initiator}, typ); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseReferenceType(s string) (domain.ReferenceType, error) {
	switch rt := domain.ReferenceType(strings.ToUpper(strings.TrimSpace(s))); rt {
	case "":
		return domain.ReferenceUnset, nil
	case domain.ReferenceCommit, domain.ReferenceTag, domain.ReferenceBranch,
		domain.ReferenceNotApplicable, domain.ReferenceUnset:
		return rt, nil
	default:
		return "", domain.NewValidationError("reference_type", "unknown reference type %q", s)
	}
}
