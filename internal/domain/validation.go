package domain

import (
	"strings"
	"time"
)

// ValidatorTool is a descriptor validator that reports validation runs.
type ValidatorTool string

const (
	ValidatorMiniWDL      ValidatorTool = "MINIWDL"
	ValidatorWomtool      ValidatorTool = "WOMTOOL"
	ValidatorCWLTool      ValidatorTool = "CWLTOOL"
	ValidatorNFValidation ValidatorTool = "NF_VALIDATION"
	ValidatorOther        ValidatorTool = "OTHER"
)

var validatorTools = []ValidatorTool{
	ValidatorMiniWDL, ValidatorWomtool, ValidatorCWLTool, ValidatorNFValidation, ValidatorOther,
}

func ParseValidatorTool(s string) (ValidatorTool, error) {
	norm := ValidatorTool(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range validatorTools {
		if t == norm {
			return t, nil
		}
	}
	return "", NewValidationError("validatorTool", "unknown validator tool %q", s)
}

// ValidatorVersionInfo is the history of one validator tool version.
type ValidatorVersionInfo struct {
	Name         string    `json:"name"`
	IsValid      bool      `json:"isValid"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DateExecuted time.Time `json:"dateExecuted"`
	PassingRate  float64   `json:"passingRate"`
	NumberOfRuns int       `json:"numberOfRuns"`
}

// ValidationInfo aggregates every version of one validator tool.
type ValidationInfo struct {
	MostRecentVersionName string                 `json:"mostRecentVersionName"`
	PassingRate           float64                `json:"passingRate"`
	NumberOfRuns          int                    `json:"numberOfRuns"`
	ValidatorVersions     []ValidatorVersionInfo `json:"validatorVersions"`
}

// Record upserts the record for rec.Name and recomputes the aggregates.
func (vi *ValidationInfo) Record(rec ValidatorVersionInfo) error {
	if strings.TrimSpace(rec.Name) == "" {
		return NewValidationError("validatorToolVersion", "must not be empty")
	}
	if rec.NumberOfRuns < 0 {
		return NewValidationError("numberOfRuns", "must not be negative, got %d", rec.NumberOfRuns)
	}
	if rec.PassingRate < 0 || rec.PassingRate > 100 {
		return NewValidationError("passingRate", "must be between 0 and 100, got %v", rec.PassingRate)
	}

	replaced := false
	for i := range vi.ValidatorVersions {
		if vi.ValidatorVersions[i].Name == rec.Name {
			vi.ValidatorVersions[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		vi.ValidatorVersions = append(vi.ValidatorVersions, rec)
	}
	vi.recompute()
	return nil
}

func (vi *ValidationInfo) recompute() {
	vi.NumberOfRuns = 0
	vi.PassingRate = 0
	vi.MostRecentVersionName = ""

	var latest time.Time
	weighted := 0.0
	for _, v := range vi.ValidatorVersions {
		vi.NumberOfRuns += v.NumberOfRuns
		weighted += v.PassingRate * float64(v.NumberOfRuns)
		if vi.MostRecentVersionName == "" || !v.DateExecuted.Before(latest) {
			latest = v.DateExecuted
			vi.MostRecentVersionName = v.Name
		}
	}
	if vi.NumberOfRuns > 0 {
		vi.PassingRate = weighted / float64(vi.NumberOfRuns)
	}
}

// Version returns the record for a validator tool version.
func (vi *ValidationInfo) Version(name string) (ValidatorVersionInfo, bool) {
	for _, v := range vi.ValidatorVersions {
		if v.Name == name {
			return v, true
		}
	}
	return ValidatorVersionInfo{}, false
}

// ValidationStatusCount holds validation history per validator tool.
type ValidationStatusCount struct {
	ValidatorTools map[ValidatorTool]*ValidationInfo `json:"validatorTools"`
}

// Record adds or replaces one validator version record for tool.
func (v *ValidationStatusCount) Record(tool ValidatorTool, rec ValidatorVersionInfo) error {
	if _, err := ParseValidatorTool(string(tool)); err != nil {
		return err
	}
	if v.ValidatorTools == nil {
		v.ValidatorTools = make(map[ValidatorTool]*ValidationInfo)
	}
	info, ok := v.ValidatorTools[tool]
	if !ok {
		info = &ValidationInfo{}
	}
	if err := info.Record(rec); err != nil {
		return err
	}
	v.ValidatorTools[tool] = info
	return nil
}

// Accumulate pools rec with any existing runs of the same tool version and
// records the result.
func (v *ValidationStatusCount) Accumulate(tool ValidatorTool, rec ValidatorVersionInfo) error {
	if existing, ok := v.lookup(tool, rec.Name); ok {
		rec = poolRuns(existing, rec)
	}
	return v.Record(tool, rec)
}

// Combine merges other into v.
func (v *ValidationStatusCount) Combine(other *ValidationStatusCount) error {
	if other == nil {
		return nil
	}
	for tool, info := range other.ValidatorTools {
		for _, rec := range info.ValidatorVersions {
			if err := v.Accumulate(tool, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *ValidationStatusCount) lookup(tool ValidatorTool, name string) (ValidatorVersionInfo, bool) {
	if v.ValidatorTools == nil {
		return ValidatorVersionInfo{}, false
	}
	info, ok := v.ValidatorTools[tool]
	if !ok {
		return ValidatorVersionInfo{}, false
	}
	return info.Version(name)
}

// poolRuns merges two histories of the same tool version; the later run wins
// for IsValid and ErrorMessage.
func poolRuns(a, b ValidatorVersionInfo) ValidatorVersionInfo {
	runs := a.NumberOfRuns + b.NumberOfRuns
	out := b
	if a.DateExecuted.After(b.DateExecuted) {
		out = a
	}
	out.NumberOfRuns = runs
	if runs > 0 {
		out.PassingRate = (a.PassingRate*float64(a.NumberOfRuns) + b.PassingRate*float64(b.NumberOfRuns)) / float64(runs)
	}
	return out
}
