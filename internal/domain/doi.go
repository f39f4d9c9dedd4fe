package domain

import "strings"

// DoiType distinguishes a concept DOI (whole entry) from a version DOI.
type DoiType string

const (
	DoiTypeConcept DoiType = "CONCEPT"
	DoiTypeVersion DoiType = "VERSION"
)

// DoiInitiator is who requested the DOI.
type DoiInitiator string

const (
	DoiInitiatorUser      DoiInitiator = "USER"
	DoiInitiatorDockstore DoiInitiator = "DOCKSTORE"
	DoiInitiatorGitHub    DoiInitiator = "GITHUB"
)

// DoiInitiators lists the initiators in declaration order.
func DoiInitiators() []DoiInitiator {
	return []DoiInitiator{DoiInitiatorUser, DoiInitiatorDockstore, DoiInitiatorGitHub}
}

// DefaultDoiPrecedence is used when no policy file overrides it.
func DefaultDoiPrecedence() []DoiInitiator {
	return DoiInitiators()
}

func ParseDoiInitiator(s string) (DoiInitiator, error) {
	norm := DoiInitiator(strings.ToUpper(strings.TrimSpace(s)))
	for _, i := range DoiInitiators() {
		if i == norm {
			return i, nil
		}
	}
	return "", NewValidationError("initiator", "unknown DOI initiator %q", s)
}

// Doi is one externally issued identifier.
type Doi struct {
	Name      string       `json:"name"` // ex: 10.5281/zenodo.1234
	Type      DoiType      `json:"type"`
	Initiator DoiInitiator `json:"initiator"`
}

// DoiMap holds at most one DOI per initiator.
type DoiMap map[DoiInitiator]Doi

// Put stores d under its initiator after checking it has the expected type.
func (m DoiMap) Put(d Doi, want DoiType) error {
	if _, err := ParseDoiInitiator(string(d.Initiator)); err != nil {
		return err
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("doi", "name must not be empty")
	}
	if d.Type != want {
		return NewValidationError("doi", "expected a %s DOI, got %s", want, d.Type)
	}
	m[d.Initiator] = d
	return nil
}

// ResolveDoi picks the DOI to display. An explicit selection wins when the map
// holds a DOI for it; otherwise the first initiator in precedence that has one.
func ResolveDoi(dois DoiMap, selection *DoiInitiator, precedence []DoiInitiator) (Doi, bool) {
	if len(dois) == 0 {
		return Doi{}, false
	}
	if selection != nil {
		if d, ok := dois[*selection]; ok {
			return d, true
		}
	}
	for _, initiator := range precedence {
		if d, ok := dois[initiator]; ok {
			return d, true
		}
	}
	return Doi{}, false
}

func cloneDois(m DoiMap) DoiMap {
	if m == nil {
		return nil
	}
	out := make(DoiMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
