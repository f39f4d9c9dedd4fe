// Package policy loads the precedence tables used to pick an entry's
// displayed concept DOI and its initial topic selection.
package policy

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"gopkg.in/yaml.v3"
)

// Policy is immutable once loaded; replace it wholesale.
type Policy struct {
	DoiPrecedence []domain.DoiInitiator
	TopicOrder    []domain.TopicSelection
}

// file mirrors the YAML layout.
type file struct {
	DoiPrecedence []string `yaml:"doi_precedence"`
	TopicOrder    []string `yaml:"topic_order"`
}

// Default returns the built-in tables.
func Default() Policy {
	return Policy{
		DoiPrecedence: domain.DefaultDoiPrecedence(),
		TopicOrder:    domain.DefaultTopicOrder(),
	}
}

// Load reads and validates a policy file. An empty path yields Default.
func Load(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, &domain.ConfigurationError{Source: path, Reason: fmt.Sprintf("failed to read policy file: %v", err)}
	}
	return Parse(data, path)
}

// Parse decodes YAML policy content. source only labels errors.
func Parse(data []byte, source string) (Policy, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Policy{}, &domain.ConfigurationError{Source: source, Reason: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	p := Policy{TopicOrder: domain.DefaultTopicOrder()}
	for _, raw := range f.DoiPrecedence {
		i, err := domain.ParseDoiInitiator(raw)
		if err != nil {
			return Policy{}, &domain.ConfigurationError{Source: source, Reason: "doi_precedence: " + err.Error()}
		}
		p.DoiPrecedence = append(p.DoiPrecedence, i)
	}
	if len(f.TopicOrder) > 0 {
		p.TopicOrder = nil
		for _, raw := range f.TopicOrder {
			t, err := domain.ParseTopicSelection(raw)
			if err != nil {
				return Policy{}, &domain.ConfigurationError{Source: source, Reason: "topic_order: " + err.Error()}
			}
			p.TopicOrder = append(p.TopicOrder, t)
		}
	}

	if err := p.Validate(); err != nil {
		if ce, ok := err.(*domain.ConfigurationError); ok {
			ce.Source = source
		}
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that every DOI initiator appears exactly once and that the
// topic order is a non-empty list without duplicates.
func (p Policy) Validate() error {
	seen := make(map[domain.DoiInitiator]bool, len(p.DoiPrecedence))
	for _, i := range p.DoiPrecedence {
		if _, err := domain.ParseDoiInitiator(string(i)); err != nil {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("doi_precedence: unknown initiator %q", i)}
		}
		if seen[i] {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("doi_precedence: %s listed twice", i)}
		}
		seen[i] = true
	}
	for _, i := range domain.DoiInitiators() {
		if !seen[i] {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("doi_precedence: missing %s", i)}
		}
	}

	if len(p.TopicOrder) == 0 {
		return &domain.ConfigurationError{Reason: "topic_order: empty"}
	}
	topics := make(map[domain.TopicSelection]bool, len(p.TopicOrder))
	for _, t := range p.TopicOrder {
		if _, err := domain.ParseTopicSelection(string(t)); err != nil {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("topic_order: unknown selection %q", t)}
		}
		if topics[t] {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("topic_order: %s listed twice", t)}
		}
		topics[t] = true
	}
	return nil
}

// Holder publishes the current policy to concurrent readers.
type Holder struct {
	path     string
	current  atomic.Pointer[Policy]
	loadedAt atomic.Int64
}

// NewHolder loads path once. Startup treats the error as fatal.
func NewHolder(path string) (*Holder, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	h := &Holder{path: path}
	h.store(p)
	return h, nil
}

// NewStaticHolder serves p and never reads a file.
func NewStaticHolder(p Policy) *Holder {
	h := &Holder{}
	h.store(p)
	return h
}

func (h *Holder) store(p Policy) {
	h.current.Store(&p)
	h.loadedAt.Store(time.Now().UnixNano())
}

// Current returns the last good policy.
func (h *Holder) Current() Policy {
	return *h.current.Load()
}

func (h *Holder) Path() string { return h.path }

// LoadedAt is when the current policy was installed.
func (h *Holder) LoadedAt() time.Time {
	return time.Unix(0, h.loadedAt.Load())
}

// Reload re-reads the file. On error the previous policy stays in place.
func (h *Holder) Reload() (Policy, error) {
	if h.path == "" {
		return h.Current(), nil
	}
	p, err := Load(h.path)
	if err != nil {
		return h.Current(), err
	}
	h.store(p)
	return p, nil
}
