package domain

import (
	"encoding/json"
	"strings"
)

// ExecutionStatus is the outcome of one workflow run.
type ExecutionStatus string

const (
	StatusSuccessful            ExecutionStatus = "SUCCESSFUL"
	StatusFailed                ExecutionStatus = "FAILED"
	StatusFailedSemanticInvalid ExecutionStatus = "FAILED_SEMANTIC_INVALID"
	StatusFailedRuntimeInvalid  ExecutionStatus = "FAILED_RUNTIME_INVALID"
	StatusAborted               ExecutionStatus = "ABORTED"
)

var executionStatuses = []ExecutionStatus{
	StatusSuccessful, StatusFailed, StatusFailedSemanticInvalid, StatusFailedRuntimeInvalid, StatusAborted,
}

// ParseExecutionStatus accepts any letter case.
func ParseExecutionStatus(s string) (ExecutionStatus, error) {
	norm := ExecutionStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range executionStatuses {
		if st == norm {
			return st, nil
		}
	}
	return "", NewValidationError("executionStatus", "unknown execution status %q", s)
}

// ExecutionStatusCount maps each status to the number of runs observed with it.
// Totals are derived on read so they can never drift from Count.
type ExecutionStatusCount struct {
	Count map[ExecutionStatus]int `json:"count"`
}

// NewExecutionStatusCount validates and copies counts.
func NewExecutionStatusCount(counts map[ExecutionStatus]int) (*ExecutionStatusCount, error) {
	c := &ExecutionStatusCount{}
	if err := c.SetCount(counts); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCount replaces the whole mapping. Callers merge old and new counts first.
func (c *ExecutionStatusCount) SetCount(counts map[ExecutionStatus]int) error {
	next := make(map[ExecutionStatus]int, len(counts))
	for st, n := range counts {
		if _, err := ParseExecutionStatus(string(st)); err != nil {
			return err
		}
		if n < 0 {
			return NewValidationError("count", "count for %s must not be negative, got %d", st, n)
		}
		if n > 0 {
			next[st] = n
		}
	}
	c.Count = next
	return nil
}

// Add returns the per-status sum of c and other without modifying either.
func (c *ExecutionStatusCount) Add(other map[ExecutionStatus]int) map[ExecutionStatus]int {
	sum := make(map[ExecutionStatus]int, len(executionStatuses))
	if c != nil {
		for st, n := range c.Count {
			sum[st] += n
		}
	}
	for st, n := range other {
		sum[st] += n
	}
	return sum
}

func (c *ExecutionStatusCount) NumberOfExecutions() int {
	total := 0
	for _, n := range c.Count {
		total += n
	}
	return total
}

func (c *ExecutionStatusCount) NumberOfSuccessfulExecutions() int {
	return c.Count[StatusSuccessful]
}

// NumberOfFailedExecutions counts every run that did not succeed, aborted runs included.
func (c *ExecutionStatusCount) NumberOfFailedExecutions() int {
	return c.NumberOfExecutions() - c.NumberOfSuccessfulExecutions()
}

func (c *ExecutionStatusCount) NumberOfAbortedExecutions() int {
	return c.Count[StatusAborted]
}

type executionStatusCountJSON struct {
	Count                        map[ExecutionStatus]int `json:"count"`
	NumberOfExecutions           int                     `json:"numberOfExecutions"`
	NumberOfSuccessfulExecutions int                     `json:"numberOfSuccessfulExecutions"`
	NumberOfFailedExecutions     int                     `json:"numberOfFailedExecutions"`
	NumberOfAbortedExecutions    int                     `json:"numberOfAbortedExecutions"`
}

// MarshalJSON includes the derived totals for readers.
func (c ExecutionStatusCount) MarshalJSON() ([]byte, error) {
	count := c.Count
	if count == nil {
		count = map[ExecutionStatus]int{}
	}
	return json.Marshal(executionStatusCountJSON{
		Count:                        count,
		NumberOfExecutions:           c.NumberOfExecutions(),
		NumberOfSuccessfulExecutions: c.NumberOfSuccessfulExecutions(),
		NumberOfFailedExecutions:     c.NumberOfFailedExecutions(),
		NumberOfAbortedExecutions:    c.NumberOfAbortedExecutions(),
	})
}

// UnmarshalJSON ignores the derived totals and recomputes them from Count.
func (c *ExecutionStatusCount) UnmarshalJSON(data []byte) error {
	var raw executionStatusCountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.SetCount(raw.Count)
}
