package catalog

import (
	"errors"
	"testing"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

func TestMapperMapEntries(t *testing.T) {
	cat := Catalog{Entries: []EntryProps{
		{
			Kind:          "workflow",
			SourceControl: "github.com",
			Organization:  "dockstore",
			Repository:    "hello",
			Topics:        TopicProps{Manual: "hand written", Selection: "manual"},
			ConceptDOIs:   []DoiProps{{Initiator: "USER", Name: "10.5281/zenodo.1"}},
			Versions: []VersionProps{{
				Name:          "1.0",
				ReferenceType: "branch",
				Authors:       []AuthorProps{{Name: "Ada", Orcid: "0000-0001"}},
				DOIs:          []DoiProps{{Initiator: "dockstore", Name: "10.5281/zenodo.2"}},
				SourceFiles:   []SourceFileProps{{Path: "/main.wdl", VerifiedBy: []string{"galaxy"}}},
			}},
		},
		{Kind: "apptool", Registry: "github.com", Namespace: "org", Name: "app"},
	}}

	entries, err := NewMapper().MapEntries(cat)
	if err != nil {
		t.Fatalf("MapEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("MapEntries() returned %d entries, want 2", len(entries))
	}

	wf := entries[0]
	if wf.Workflow == nil || wf.Tool != nil || wf.TRSID() != "#workflow/github.com/dockstore/hello" {
		t.Errorf("workflow entry = %+v", wf)
	}
	if wf.Topics.Selection != domain.TopicManual || wf.Topic() != "hand written" {
		t.Errorf("topics = %+v", wf.Topics)
	}
	if d := wf.ConceptDOIs[domain.DoiInitiatorUser]; d.Type != domain.DoiTypeConcept {
		t.Errorf("concept DOI = %+v", d)
	}
	v := wf.Versions[0]
	if v.ReferenceType != domain.ReferenceBranch || v.Authors[0].Orcid != "0000-0001" {
		t.Errorf("version = %+v", v)
	}
	if d := v.DOIs[domain.DoiInitiatorDockstore]; d.Type != domain.DoiTypeVersion {
		t.Errorf("version DOI = %+v", d)
	}
	if !v.Verified() || !v.VerifiedPlatforms().Contains(domain.PartnerGalaxy) {
		t.Errorf("verified platforms = %v", v.VerifiedPlatforms())
	}

	app := entries[1]
	if app.Tool == nil || app.Workflow != nil || app.TRSID() != "github.com/org/app" {
		t.Errorf("app tool entry = %+v", app)
	}
}

func TestMapperRejects(t *testing.T) {
	tests := []struct {
		name  string
		entry EntryProps
	}{
		{name: "unknown kind", entry: EntryProps{Kind: "plugin"}},
		{name: "unknown topic selection", entry: EntryProps{Kind: "tool", Topics: TopicProps{Selection: "crowd"}}},
		{name: "unknown initiator", entry: EntryProps{Kind: "tool", ConceptDOIs: []DoiProps{{Initiator: "zenodo", Name: "x"}}}},
		{name: "duplicate initiator", entry: EntryProps{Kind: "tool", ConceptDOIs: []DoiProps{{Initiator: "USER", Name: "a"}, {Initiator: "user", Name: "b"}}}},
		{name: "unknown reference type", entry: EntryProps{Kind: "tool", Versions: []VersionProps{{Name: "1", ReferenceType: "tree"}}}},
		{name: "unknown verifier", entry: EntryProps{Kind: "tool", Versions: []VersionProps{{Name: "1", SourceFiles: []SourceFileProps{{Path: "/x", VerifiedBy: []string{"HPC"}}}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMapper().MapEntries(Catalog{Entries: []EntryProps{tt.entry}})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("MapEntries() error = %v, want validation error", err)
			}
		})
	}
}

func TestMapperEmptyCatalog(t *testing.T) {
	if _, err := NewMapper().MapEntries(Catalog{}); err == nil {
		t.Error("MapEntries() with no entries should return error")
	}
}
