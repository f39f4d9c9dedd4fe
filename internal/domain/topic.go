package domain

import "strings"

// TopicSelection chooses which of an entry's three topics is displayed.
type TopicSelection string

const (
	TopicAutomatic TopicSelection = "AUTOMATIC"
	TopicManual    TopicSelection = "MANUAL"
	TopicAI        TopicSelection = "AI"
)

func TopicSelections() []TopicSelection {
	return []TopicSelection{TopicAutomatic, TopicManual, TopicAI}
}

// DefaultTopicOrder is consulted when an entry has no selection yet.
func DefaultTopicOrder() []TopicSelection {
	return []TopicSelection{TopicManual, TopicAutomatic, TopicAI}
}

func ParseTopicSelection(s string) (TopicSelection, error) {
	norm := TopicSelection(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range TopicSelections() {
		if t == norm {
			return t, nil
		}
	}
	return "", NewValidationError("topicSelection", "unknown topic selection %q", s)
}

// Topics holds the three topic variants of an entry.
type Topics struct {
	Automatic string         `json:"topicAutomatic,omitempty"`
	Manual    string         `json:"topicManual,omitempty"`
	AI        string         `json:"topicAI,omitempty"`
	Selection TopicSelection `json:"topicSelection,omitempty"`
}

// Text returns the topic for sel.
func (t Topics) Text(sel TopicSelection) string {
	switch sel {
	case TopicManual:
		return t.Manual
	case TopicAI:
		return t.AI
	default:
		return t.Automatic
	}
}

// ChooseSelection returns the first selection in order with non-empty text,
// falling back to the first entry of order.
func (t Topics) ChooseSelection(order []TopicSelection) TopicSelection {
	for _, sel := range order {
		if t.Text(sel) != "" {
			return sel
		}
	}
	if len(order) > 0 {
		return order[0]
	}
	return TopicAutomatic
}
