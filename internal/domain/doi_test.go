package domain

import (
	"errors"
	"testing"
)

func TestResolveDoi(t *testing.T) {
	user := Doi{Name: "10.5281/zenodo.1", Type: DoiTypeConcept, Initiator: DoiInitiatorUser}
	dockstore := Doi{Name: "10.5281/zenodo.2", Type: DoiTypeConcept, Initiator: DoiInitiatorDockstore}
	github := Doi{Name: "10.5281/zenodo.3", Type: DoiTypeConcept, Initiator: DoiInitiatorGitHub}
	sel := func(i DoiInitiator) *DoiInitiator { return &i }

	tests := []struct {
		name       string
		dois       DoiMap
		selection  *DoiInitiator
		precedence []DoiInitiator
		want       Doi
		wantOK     bool
	}{
		{
			name:       "empty map",
			dois:       DoiMap{},
			precedence: DefaultDoiPrecedence(),
		},
		{
			name:       "precedence picks user over github",
			dois:       DoiMap{DoiInitiatorGitHub: github, DoiInitiatorUser: user},
			precedence: DefaultDoiPrecedence(),
			want:       user,
			wantOK:     true,
		},
		{
			name:       "custom precedence",
			dois:       DoiMap{DoiInitiatorGitHub: github, DoiInitiatorUser: user},
			precedence: []DoiInitiator{DoiInitiatorGitHub, DoiInitiatorUser, DoiInitiatorDockstore},
			want:       github,
			wantOK:     true,
		},
		{
			name:       "selection overrides precedence",
			dois:       DoiMap{DoiInitiatorDockstore: dockstore, DoiInitiatorUser: user},
			selection:  sel(DoiInitiatorDockstore),
			precedence: DefaultDoiPrecedence(),
			want:       dockstore,
			wantOK:     true,
		},
		{
			name:       "selection without doi falls back",
			dois:       DoiMap{DoiInitiatorGitHub: github},
			selection:  sel(DoiInitiatorUser),
			precedence: DefaultDoiPrecedence(),
			want:       github,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDoi(tt.dois, tt.selection, tt.precedence)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ResolveDoi() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDoiMapPut(t *testing.T) {
	m := DoiMap{}
	if err := m.Put(Doi{Name: "10.1/x", Type: DoiTypeVersion, Initiator: DoiInitiatorUser}, DoiTypeConcept); !errors.Is(err, ErrValidation) {
		t.Errorf("wrong type error = %v", err)
	}
	if err := m.Put(Doi{Name: "10.1/x", Type: DoiTypeConcept, Initiator: DoiInitiatorUser}, DoiTypeConcept); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := m.Put(Doi{Name: "10.1/y", Type: DoiTypeConcept, Initiator: DoiInitiatorUser}, DoiTypeConcept); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if len(m) != 1 || m[DoiInitiatorUser].Name != "10.1/y" {
		t.Errorf("map = %v, want one DOI per initiator", m)
	}
}

func TestEntrySetDoiSelection(t *testing.T) {
	e := Entry{ID: "x", ConceptDOIs: DoiMap{DoiInitiatorGitHub: {Name: "10.1/g", Type: DoiTypeConcept, Initiator: DoiInitiatorGitHub}}}
	if _, err := e.SetDoiSelection(DoiInitiatorUser); !errors.Is(err, ErrValidation) {
		t.Errorf("selection without doi error = %v", err)
	}
	if _, err := e.SetDoiSelection("NOBODY"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown initiator error = %v", err)
	}
	next, err := e.SetDoiSelection(DoiInitiatorGitHub)
	if err != nil {
		t.Fatalf("SetDoiSelection() error = %v", err)
	}
	if d, ok := next.SelectedConceptDoi(DefaultDoiPrecedence()); !ok || d.Name != "10.1/g" {
		t.Errorf("SelectedConceptDoi() = %+v, %v", d, ok)
	}
	if e.DoiSelection != nil {
		t.Error("SetDoiSelection() mutated its receiver")
	}
}
