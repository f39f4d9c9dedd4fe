package domain

import "time"

// VersionKind tags the concrete flavour of a version.
type VersionKind string

const (
	VersionKindTag             VersionKind = "TAG"              // tool versions (image tags)
	VersionKindWorkflowVersion VersionKind = "WORKFLOW_VERSION" // workflows, services, notebooks
)

// ReferenceType is the kind of git ref a version points at.
type ReferenceType string

const (
	ReferenceCommit        ReferenceType = "COMMIT"
	ReferenceTag           ReferenceType = "TAG"
	ReferenceBranch        ReferenceType = "BRANCH"
	ReferenceNotApplicable ReferenceType = "NOT_APPLICABLE"
	ReferenceUnset         ReferenceType = "UNSET"
)

// Verification is a platform's claim that a source file ran successfully.
type Verification struct {
	Verified        bool   `json:"verified"`
	Source          string `json:"source,omitempty"`
	PlatformVersion string `json:"platformVersion,omitempty"`
}

// SourceFile is a descriptor or test file owned by a version.
type SourceFile struct {
	Path         string                   `json:"path"`
	Type         string                   `json:"type,omitempty"` // ex: DOCKSTORE_CWL, DOCKSTORE_WDL
	Frozen       bool                     `json:"frozen"`
	Verification map[Partner]Verification `json:"verification,omitempty"`
}

// VerifiedBy lists the platforms that verified this file.
func (f SourceFile) VerifiedBy() PartnerSet {
	var ps []Partner
	for p, v := range f.Verification {
		if v.Verified {
			ps = append(ps, p)
		}
	}
	return NewPartnerSet(ps...)
}

// Author of a version.
type Author struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Orcid       string `json:"orcid,omitempty"`
}

// Version is one buildable revision of an entry. Mutate it only through the
// lifecycle functions so the freeze rules hold.
type Version struct {
	Name          string        `json:"name"`
	Kind          VersionKind   `json:"kind"`
	Reference     string        `json:"reference,omitempty"`
	CommitID      string        `json:"commitId,omitempty"`
	ReferenceType ReferenceType `json:"referenceType"`
	Frozen        bool          `json:"frozen"`
	Hidden        bool          `json:"hidden"`
	DirtyBit      bool          `json:"dirtyBit"`
	Valid         bool          `json:"valid"`
	Description   string        `json:"description,omitempty"`
	Authors       []Author      `json:"authors,omitempty"`
	SourceFiles   []SourceFile  `json:"sourceFiles,omitempty"`
	DOIs          DoiMap        `json:"dois,omitempty"`
	DoiSelection  *DoiInitiator `json:"doiSelection,omitempty"`
	LastModified  time.Time     `json:"lastModified,omitzero"`
	UpdatedBy     string        `json:"updatedBy,omitempty"`

	LatestMetricsSubmissionDate  *time.Time `json:"latestMetricsSubmissionDate,omitempty"`
	LatestMetricsAggregationDate *time.Time `json:"latestMetricsAggregationDate,omitempty"`
}

// Verified is derived from the source files, never stored.
func (v Version) Verified() bool {
	for _, f := range v.SourceFiles {
		if len(f.VerifiedBy()) > 0 {
			return true
		}
	}
	return false
}

// VerifiedPlatforms is the union of platforms over all source files.
func (v Version) VerifiedPlatforms() PartnerSet {
	var ps []Partner
	for _, f := range v.SourceFiles {
		ps = append(ps, f.VerifiedBy()...)
	}
	return NewPartnerSet(ps...)
}

// OrcidAuthors returns the ORCID ids of the authors that have one.
func (v Version) OrcidAuthors() []string {
	var ids []string
	for _, a := range v.Authors {
		if a.Orcid != "" {
			ids = append(ids, a.Orcid)
		}
	}
	return ids
}

// SelectedDoi resolves the version DOI shown to users.
func (v Version) SelectedDoi(precedence []DoiInitiator) (Doi, bool) {
	return ResolveDoi(v.DOIs, v.DoiSelection, precedence)
}

// NeedsAggregation reports whether metrics arrived after the last aggregation.
func (v Version) NeedsAggregation() bool {
	if v.LatestMetricsSubmissionDate == nil {
		return false
	}
	if v.LatestMetricsAggregationDate == nil {
		return true
	}
	return v.LatestMetricsSubmissionDate.After(*v.LatestMetricsAggregationDate)
}

// Clone returns a deep copy.
func (v Version) Clone() Version {
	out := v
	out.Authors = append([]Author(nil), v.Authors...)
	if v.SourceFiles != nil {
		out.SourceFiles = make([]SourceFile, len(v.SourceFiles))
		for i, f := range v.SourceFiles {
			cp := f
			if f.Verification != nil {
				cp.Verification = make(map[Partner]Verification, len(f.Verification))
				for p, ver := range f.Verification {
					cp.Verification[p] = ver
				}
			}
			out.SourceFiles[i] = cp
		}
	}
	out.DOIs = cloneDois(v.DOIs)
	if v.DoiSelection != nil {
		sel := *v.DoiSelection
		out.DoiSelection = &sel
	}
	out.LatestMetricsSubmissionDate = cloneTime(v.LatestMetricsSubmissionDate)
	out.LatestMetricsAggregationDate = cloneTime(v.LatestMetricsAggregationDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
