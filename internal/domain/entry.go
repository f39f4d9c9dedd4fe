package domain

import (
	"strings"
	"time"
)

// EntryKind tags the variant of an Entry.
type EntryKind string

const (
	KindTool     EntryKind = "TOOL"
	KindWorkflow EntryKind = "WORKFLOW"
	KindService  EntryKind = "SERVICE"
	KindAppTool  EntryKind = "APPTOOL"
	KindNotebook EntryKind = "NOTEBOOK"
)

func ParseEntryKind(s string) (EntryKind, error) {
	norm := EntryKind(strings.ToUpper(strings.TrimSpace(s)))
	switch norm {
	case KindTool, KindWorkflow, KindService, KindAppTool, KindNotebook:
		return norm, nil
	}
	return "", NewValidationError("kind", "unknown entry kind %q", s)
}

// usesToolDetails is true for image-registry backed kinds.
func (k EntryKind) usesToolDetails() bool {
	return k == KindTool || k == KindAppTool
}

// VersionKind is the version flavour owned by entries of this kind.
func (k EntryKind) VersionKind() VersionKind {
	if k.usesToolDetails() {
		return VersionKindTag
	}
	return VersionKindWorkflowVersion
}

// ToolDetails identify tools and app tools.
type ToolDetails struct {
	Registry  string `json:"registry"` // ex: quay.io, github.com for app tools
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	ToolName  string `json:"toolName,omitempty"`
}

// WorkflowDetails identify workflows, services and notebooks.
type WorkflowDetails struct {
	SourceControl  string `json:"sourceControl"` // ex: github.com
	Organization   string `json:"organization"`
	Repository     string `json:"repository"`
	WorkflowName   string `json:"workflowName,omitempty"`
	DescriptorType string `json:"descriptorType,omitempty"` // ex: CWL, WDL, NFL, jupyter
}

// Entry is a registered tool, workflow, service, app tool or notebook.
// Exactly one of Tool or Workflow is set, chosen by Kind.
type Entry struct {
	ID       string           `json:"id"`
	Kind     EntryKind        `json:"kind"`
	Tool     *ToolDetails     `json:"tool,omitempty"`
	Workflow *WorkflowDetails `json:"workflow,omitempty"`

	IsPublished   bool   `json:"isPublished"`
	WasEverPublic bool   `json:"wasEverPublic"`
	Archived      bool   `json:"archived"`
	GitURL        string `json:"gitUrl,omitempty"`
	Description   string `json:"description,omitempty"`
	Topics        Topics `json:"topics"`

	ConceptDOIs  DoiMap        `json:"conceptDois,omitempty"`
	DoiSelection *DoiInitiator `json:"doiSelection,omitempty"`

	DefaultVersion string    `json:"defaultVersion,omitempty"`
	Versions       []Version `json:"versions,omitempty"`

	Categories  []string `json:"categories,omitempty"`
	Collections []string `json:"collections,omitempty"`

	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

// NewEntry validates the kind-specific details and derives the TRS id.
func NewEntry(kind EntryKind, tool *ToolDetails, workflow *WorkflowDetails) (Entry, error) {
	e := Entry{Kind: kind, Tool: tool, Workflow: workflow}
	if err := e.validateShape(); err != nil {
		return Entry{}, err
	}
	e.ID = e.TRSID()
	return e, nil
}

func (e Entry) validateShape() error {
	if _, err := ParseEntryKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Kind.usesToolDetails() {
		if e.Tool == nil || e.Workflow != nil {
			return NewValidationError("tool", "%s entries need tool details only", e.Kind)
		}
		if e.Tool.Registry == "" || e.Tool.Namespace == "" || e.Tool.Name == "" {
			return NewValidationError("tool", "registry, namespace and name are required")
		}
		return nil
	}
	if e.Workflow == nil || e.Tool != nil {
		return NewValidationError("workflow", "%s entries need workflow details only", e.Kind)
	}
	if e.Workflow.SourceControl == "" || e.Workflow.Organization == "" || e.Workflow.Repository == "" {
		return NewValidationError("workflow", "sourceControl, organization and repository are required")
	}
	return nil
}

// Path is the entry path without any TRS prefix.
func (e Entry) Path() string {
	var parts []string
	if e.Kind.usesToolDetails() && e.Tool != nil {
		parts = []string{e.Tool.Registry, e.Tool.Namespace, e.Tool.Name, e.Tool.ToolName}
	} else if e.Workflow != nil {
		parts = []string{e.Workflow.SourceControl, e.Workflow.Organization, e.Workflow.Repository, e.Workflow.WorkflowName}
	}
	if len(parts) == 4 && parts[3] == "" {
		parts = parts[:3]
	}
	return strings.Join(parts, "/")
}

// TRSID renders the GA4GH TRS id: bare path for tools, #kind/path otherwise.
func (e Entry) TRSID() string {
	switch e.Kind {
	case KindWorkflow:
		return "#workflow/" + e.Path()
	case KindService:
		return "#service/" + e.Path()
	case KindNotebook:
		return "#notebook/" + e.Path()
	default:
		return e.Path()
	}
}

// Topic returns exactly the topic picked by the current selection.
func (e Entry) Topic() string {
	return e.Topics.Text(e.Topics.Selection)
}

// SetPublished keeps WasEverPublic sticky once true.
func (e Entry) SetPublished(published bool) Entry {
	out := e.Clone()
	out.IsPublished = published
	if published {
		out.WasEverPublic = true
	}
	return out
}

// SetTopicSelection switches the displayed topic.
func (e Entry) SetTopicSelection(sel TopicSelection) (Entry, error) {
	parsed, err := ParseTopicSelection(string(sel))
	if err != nil {
		return e, err
	}
	out := e.Clone()
	out.Topics.Selection = parsed
	return out, nil
}

// SetDoiSelection requires a concept DOI from that initiator.
func (e Entry) SetDoiSelection(initiator DoiInitiator) (Entry, error) {
	sel, err := ParseDoiInitiator(string(initiator))
	if err != nil {
		return e, err
	}
	if _, ok := e.ConceptDOIs[sel]; !ok {
		return e, NewValidationError("doiSelection", "entry %s has no %s concept DOI", e.ID, sel)
	}
	out := e.Clone()
	out.DoiSelection = &sel
	return out, nil
}

// SelectedConceptDoi resolves the concept DOI shown to users.
func (e Entry) SelectedConceptDoi(precedence []DoiInitiator) (Doi, bool) {
	return ResolveDoi(e.ConceptDOIs, e.DoiSelection, precedence)
}

// Version looks a version up by name.
func (e Entry) Version(name string) (Version, bool) {
	i := e.versionIndex(name)
	if i < 0 {
		return Version{}, false
	}
	return e.Versions[i], true
}

func (e Entry) versionIndex(name string) int {
	for i := range e.Versions {
		if e.Versions[i].Name == name {
			return i
		}
	}
	return -1
}

// AddVersion appends a new version; names are unique per entry.
func (e Entry) AddVersion(v Version) (Entry, error) {
	if strings.TrimSpace(v.Name) == "" {
		return e, NewValidationError("name", "version name must not be empty")
	}
	if e.versionIndex(v.Name) >= 0 {
		return e, NewValidationError("name", "version %s already exists", v.Name)
	}
	if v.Kind == "" {
		v.Kind = e.Kind.VersionKind()
	}
	if v.ReferenceType == "" {
		v.ReferenceType = ReferenceUnset
	}
	out := e.Clone()
	out.Versions = append(out.Versions, v.Clone())
	return out, nil
}

// ReplaceVersion swaps in the next state of an existing version.
func (e Entry) ReplaceVersion(v Version) (Entry, error) {
	i := e.versionIndex(v.Name)
	if i < 0 {
		return e, &NotFoundError{Kind: "version", Identity: e.ID + ":" + v.Name}
	}
	out := e.Clone()
	out.Versions[i] = v.Clone()
	return out, nil
}

// Authors delegate to the default version.
func (e Entry) Authors() []Author {
	if v, ok := e.Version(e.DefaultVersion); ok {
		return v.Authors
	}
	return nil
}

func (e Entry) OrcidAuthors() []string {
	if v, ok := e.Version(e.DefaultVersion); ok {
		return v.OrcidAuthors()
	}
	return nil
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	out := e
	if e.Tool != nil {
		t := *e.Tool
		out.Tool = &t
	}
	if e.Workflow != nil {
		w := *e.Workflow
		out.Workflow = &w
	}
	out.ConceptDOIs = cloneDois(e.ConceptDOIs)
	if e.DoiSelection != nil {
		sel := *e.DoiSelection
		out.DoiSelection = &sel
	}
	if e.Versions != nil {
		out.Versions = make([]Version, len(e.Versions))
		for i, v := range e.Versions {
			out.Versions[i] = v.Clone()
		}
	}
	out.Categories = append([]string(nil), e.Categories...)
	out.Collections = append([]string(nil), e.Collections...)
	return out
}
