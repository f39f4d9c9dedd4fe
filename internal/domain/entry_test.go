package domain

import (
	"errors"
	"testing"
)

func TestEntryTRSID(t *testing.T) {
	tests := []struct {
		name     string
		kind     EntryKind
		tool     *ToolDetails
		workflow *WorkflowDetails
		want     string
		wantErr  bool
	}{
		{
			name: "tool without tool name",
			kind: KindTool,
			tool: &ToolDetails{Registry: "quay.io", Namespace: "dockstore", Name: "hello_world"},
			want: "quay.io/dockstore/hello_world",
		},
		{
			name: "tool with tool name",
			kind: KindTool,
			tool: &ToolDetails{Registry: "quay.io", Namespace: "dockstore", Name: "hello_world", ToolName: "thing"},
			want: "quay.io/dockstore/hello_world/thing",
		},
		{
			name:     "workflow",
			kind:     KindWorkflow,
			workflow: &WorkflowDetails{SourceControl: "github.com", Organization: "org", Repository: "repo", WorkflowName: "wf"},
			want:     "#workflow/github.com/org/repo/wf",
		},
		{
			name:     "notebook",
			kind:     KindNotebook,
			workflow: &WorkflowDetails{SourceControl: "github.com", Organization: "org", Repository: "nb"},
			want:     "#notebook/github.com/org/nb",
		},
		{
			name:     "service",
			kind:     KindService,
			workflow: &WorkflowDetails{SourceControl: "github.com", Organization: "org", Repository: "svc"},
			want:     "#service/github.com/org/svc",
		},
		{
			name: "app tool",
			kind: KindAppTool,
			tool: &ToolDetails{Registry: "github.com", Namespace: "org", Name: "repo", ToolName: "app"},
			want: "github.com/org/repo/app",
		},
		{
			name:     "workflow with tool details",
			kind:     KindWorkflow,
			tool:     &ToolDetails{Registry: "quay.io", Namespace: "a", Name: "b"},
			wantErr:  true,
			workflow: nil,
		},
		{
			name:    "tool missing name",
			kind:    KindTool,
			tool:    &ToolDetails{Registry: "quay.io", Namespace: "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEntry(tt.kind, tt.tool, tt.workflow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if e.ID != tt.want {
				t.Errorf("ID = %q, want %q", e.ID, tt.want)
			}
		})
	}
}

func TestEntryTopic(t *testing.T) {
	e := Entry{Topics: Topics{Automatic: "auto", Manual: "manual", AI: "ai"}}
	for _, sel := range TopicSelections() {
		next, err := e.SetTopicSelection(sel)
		if err != nil {
			t.Fatalf("SetTopicSelection(%s) error = %v", sel, err)
		}
		if got, want := next.Topic(), next.Topics.Text(sel); got != want {
			t.Errorf("Topic() with %s = %q, want %q", sel, got, want)
		}
	}
	if _, err := e.SetTopicSelection("RANDOM"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown selection error = %v", err)
	}
}

func TestTopicsChooseSelection(t *testing.T) {
	topics := Topics{Automatic: "from github", AI: "generated"}
	if got := topics.ChooseSelection([]TopicSelection{TopicManual, TopicAI, TopicAutomatic}); got != TopicAI {
		t.Errorf("ChooseSelection() = %s, want AI", got)
	}
	if got := (Topics{}).ChooseSelection([]TopicSelection{TopicManual}); got != TopicManual {
		t.Errorf("ChooseSelection() on empty topics = %s, want MANUAL", got)
	}
}

func TestSetPublishedSticky(t *testing.T) {
	e := Entry{}
	e = e.SetPublished(true)
	e = e.SetPublished(false)
	if e.IsPublished {
		t.Error("IsPublished = true after unpublish")
	}
	if !e.WasEverPublic {
		t.Error("WasEverPublic reset by unpublish")
	}
}

func TestCheckAndSetDefaultVersion(t *testing.T) {
	base := Entry{ID: "quay.io/a/b", Description: "old", DefaultVersion: "1.0", Versions: []Version{
		{Name: "1.0", Description: "first", Authors: []Author{{Name: "Ada", Orcid: "0000-0001"}}},
		{Name: "2.0", Description: "second", Authors: []Author{{Name: "Grace"}}},
		{Name: "hidden", Description: "secret", Hidden: true},
	}}

	tests := []struct {
		name        string
		version     string
		wantOK      bool
		wantErr     bool
		wantDefault string
		wantDesc    string
	}{
		{name: "visible version", version: "2.0", wantOK: true, wantDefault: "2.0", wantDesc: "second"},
		{name: "hidden version", version: "hidden", wantErr: true, wantDefault: "1.0", wantDesc: "old"},
		{name: "unknown version", version: "9.9", wantDefault: "1.0", wantDesc: "old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := CheckAndSetDefaultVersion(base, tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.DefaultVersion != tt.wantDefault {
				t.Errorf("DefaultVersion = %q, want %q", got.DefaultVersion, tt.wantDefault)
			}
			if got.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.wantDesc)
			}
		})
	}

	next, _, _ := CheckAndSetDefaultVersion(base, "2.0")
	if authors := next.Authors(); len(authors) != 1 || authors[0].Name != "Grace" {
		t.Errorf("Authors() = %v, want default version authors", authors)
	}
	if ids := base.OrcidAuthors(); len(ids) != 1 || ids[0] != "0000-0001" {
		t.Errorf("OrcidAuthors() = %v", ids)
	}
}

func TestRepairDefaultVersion(t *testing.T) {
	e := Entry{DefaultVersion: "gone", Versions: []Version{{Name: "1.0"}}}
	got, changed := RepairDefaultVersion(e)
	if !changed || got.DefaultVersion != "" {
		t.Errorf("RepairDefaultVersion() = %q, %v", got.DefaultVersion, changed)
	}
	e.DefaultVersion = "1.0"
	if _, changed := RepairDefaultVersion(e); changed {
		t.Error("valid default reported as repaired")
	}
}

func TestAddAndReplaceVersion(t *testing.T) {
	e, err := NewEntry(KindTool, &ToolDetails{Registry: "quay.io", Namespace: "a", Name: "b"}, nil)
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	e, err = e.AddVersion(Version{Name: "latest"})
	if err != nil {
		t.Fatalf("AddVersion() error = %v", err)
	}
	v, _ := e.Version("latest")
	if v.Kind != VersionKindTag || v.ReferenceType != ReferenceUnset {
		t.Errorf("defaults not applied: %+v", v)
	}
	if _, err := e.AddVersion(Version{Name: "latest"}); !errors.Is(err, ErrValidation) {
		t.Errorf("duplicate version error = %v", err)
	}
	if _, err := e.ReplaceVersion(Version{Name: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("replace unknown error = %v", err)
	}
}
