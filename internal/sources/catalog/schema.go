package catalog

// Catalog is the top-level structure of a seed catalog file.
type Catalog struct {
	Entries []EntryProps `yaml:"entries"`
}

// EntryProps describes one entry. Tool kinds use the registry fields,
// every other kind uses the source control fields.
type EntryProps struct {
	Kind string `yaml:"kind"` // tool | workflow | service | apptool | notebook

	Registry  string `yaml:"registry,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	Name      string `yaml:"name,omitempty"`
	ToolName  string `yaml:"tool_name,omitempty"`

	SourceControl  string `yaml:"source_control,omitempty"`
	Organization   string `yaml:"organization,omitempty"`
	Repository     string `yaml:"repository,omitempty"`
	WorkflowName   string `yaml:"workflow_name,omitempty"`
	DescriptorType string `yaml:"descriptor_type,omitempty"`

	Published      bool           `yaml:"published,omitempty"`
	GitURL         string         `yaml:"git_url,omitempty"`
	Description    string         `yaml:"description,omitempty"`
	Topics         TopicProps     `yaml:"topics,omitempty"`
	ConceptDOIs    []DoiProps     `yaml:"concept_dois,omitempty"`
	DefaultVersion string         `yaml:"default_version,omitempty"`
	Categories     []string       `yaml:"categories,omitempty"`
	Collections    []string       `yaml:"collections,omitempty"`
	Versions       []VersionProps `yaml:"versions,omitempty"`
}

type TopicProps struct {
	Automatic string `yaml:"automatic,omitempty"`
	Manual    string `yaml:"manual,omitempty"`
	AI        string `yaml:"ai,omitempty"`
	Selection string `yaml:"selection,omitempty"`
}

type DoiProps struct {
	Initiator string `yaml:"initiator"`
	Name      string `yaml:"name"`
}

type VersionProps struct {
	Name          string            `yaml:"name"`
	Reference     string            `yaml:"reference,omitempty"`
	ReferenceType string            `yaml:"reference_type,omitempty"`
	CommitID      string            `yaml:"commit_id,omitempty"`
	Description   string            `yaml:"description,omitempty"`
	Hidden        bool              `yaml:"hidden,omitempty"`
	Frozen        bool              `yaml:"frozen,omitempty"`
	Valid         bool              `yaml:"valid,omitempty"`
	Authors       []AuthorProps     `yaml:"authors,omitempty"`
	DOIs          []DoiProps        `yaml:"dois,omitempty"`
	SourceFiles   []SourceFileProps `yaml:"source_files,omitempty"`
}

type AuthorProps struct {
	Name        string `yaml:"name"`
	Email       string `yaml:"email,omitempty"`
	Affiliation string `yaml:"affiliation,omitempty"`
	Orcid       string `yaml:"orcid,omitempty"`
}

type SourceFileProps struct {
	Path       string   `yaml:"path"`
	Type       string   `yaml:"type,omitempty"`
	VerifiedBy []string `yaml:"verified_by,omitempty"`
}
