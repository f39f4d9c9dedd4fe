package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ExecutionsRequest is the body a platform submits for one version.
type ExecutionsRequest struct {
	RunExecutions        []RunExecution        `json:"runExecutions,omitempty"`
	ValidationExecutions []ValidationExecution `json:"validationExecutions,omitempty"`
}

// RunExecution describes one workflow run on the submitting platform.
type RunExecution struct {
	ExecutionID          string          `json:"executionId,omitempty"`
	ExecutionStatus      ExecutionStatus `json:"executionStatus"`
	DateExecuted         time.Time       `json:"dateExecuted"`
	ExecutionTime        string          `json:"executionTime,omitempty"` // ISO-8601 duration, ex: PT5M30S
	MemoryRequirementsGB *float64        `json:"memoryRequirementsGB,omitempty"`
	CPURequirements      *float64        `json:"cpuRequirements,omitempty"`
	Cost                 *Cost           `json:"cost,omitempty"`
	Region               string          `json:"region,omitempty"`
}

// Cost of a run. Only USD is aggregated.
type Cost struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency,omitempty"`
}

// ValidationExecution is one validator run against the version's descriptor.
type ValidationExecution struct {
	ValidatorTool        ValidatorTool `json:"validatorTool"`
	ValidatorToolVersion string        `json:"validatorToolVersion"`
	IsValid              bool          `json:"isValid"`
	ErrorMessage         string        `json:"errorMessage,omitempty"`
	DateExecuted         time.Time     `json:"dateExecuted"`
}

// ValidationRecord is a reduced validator history for one tool version.
type ValidationRecord struct {
	Tool ValidatorTool
	Info ValidatorVersionInfo
}

// Batch is a submission reduced to what the aggregators consume.
type Batch struct {
	StatusCounts  map[ExecutionStatus]int
	ExecutionTime StatisticBatch
	CPU           StatisticBatch
	Memory        StatisticBatch
	Cost          StatisticBatch
	Validations   []ValidationRecord
}

func (b Batch) HasExecutions() bool {
	for _, n := range b.StatusCounts {
		if n > 0 {
			return true
		}
	}
	return false
}

func (b Batch) HasValidations() bool { return len(b.Validations) > 0 }

// Summarize validates the request and reduces it to a Batch.
func (r ExecutionsRequest) Summarize() (Batch, error) {
	if len(r.RunExecutions) == 0 && len(r.ValidationExecutions) == 0 {
		return Batch{}, NewValidationError("body", "at least one run or validation execution is required")
	}

	b := Batch{StatusCounts: make(map[ExecutionStatus]int)}
	var times, cpus, mems, costs []float64

	for i, run := range r.RunExecutions {
		status, err := ParseExecutionStatus(string(run.ExecutionStatus))
		if err != nil {
			return Batch{}, indexed("runExecutions", i, err)
		}
		b.StatusCounts[status]++

		if run.ExecutionTime != "" {
			secs, err := ParseISODuration(run.ExecutionTime)
			if err != nil {
				return Batch{}, indexed("runExecutions", i, err)
			}
			times = append(times, secs)
		}
		if run.MemoryRequirementsGB != nil {
			if *run.MemoryRequirementsGB < 0 {
				return Batch{}, indexed("runExecutions", i, NewValidationError("memoryRequirementsGB", "must not be negative"))
			}
			mems = append(mems, *run.MemoryRequirementsGB)
		}
		if run.CPURequirements != nil {
			if *run.CPURequirements < 0 {
				return Batch{}, indexed("runExecutions", i, NewValidationError("cpuRequirements", "must not be negative"))
			}
			cpus = append(cpus, *run.CPURequirements)
		}
		if run.Cost != nil {
			if run.Cost.Value < 0 {
				return Batch{}, indexed("runExecutions", i, NewValidationError("cost", "must not be negative"))
			}
			if cur := strings.ToUpper(run.Cost.Currency); cur != "" && cur != UnitUSD {
				return Batch{}, indexed("runExecutions", i, NewValidationError("cost.currency", "only %s is supported, got %q", UnitUSD, run.Cost.Currency))
			}
			costs = append(costs, run.Cost.Value)
		}
	}

	b.ExecutionTime = BatchOf(times...)
	b.CPU = BatchOf(cpus...)
	b.Memory = BatchOf(mems...)
	b.Cost = BatchOf(costs...)

	validations, err := reduceValidations(r.ValidationExecutions)
	if err != nil {
		return Batch{}, err
	}
	b.Validations = validations
	return b, nil
}

type validationKey struct {
	tool    ValidatorTool
	version string
}

// reduceValidations groups runs per (tool, tool version) in first-seen order.
func reduceValidations(execs []ValidationExecution) ([]ValidationRecord, error) {
	type acc struct {
		runs, passed int
		latest       ValidationExecution
	}
	groups := make(map[validationKey]*acc)
	var order []validationKey

	for i, e := range execs {
		tool, err := ParseValidatorTool(string(e.ValidatorTool))
		if err != nil {
			return nil, indexed("validationExecutions", i, err)
		}
		if strings.TrimSpace(e.ValidatorToolVersion) == "" {
			return nil, indexed("validationExecutions", i, NewValidationError("validatorToolVersion", "must not be empty"))
		}
		if e.DateExecuted.IsZero() {
			return nil, indexed("validationExecutions", i, NewValidationError("dateExecuted", "is required"))
		}
		k := validationKey{tool: tool, version: e.ValidatorToolVersion}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
			order = append(order, k)
		}
		a.runs++
		if e.IsValid {
			a.passed++
		}
		if a.runs == 1 || !e.DateExecuted.Before(a.latest.DateExecuted) {
			a.latest = e
		}
	}

	out := make([]ValidationRecord, 0, len(order))
	for _, k := range order {
		a := groups[k]
		out = append(out, ValidationRecord{
			Tool: k.tool,
			Info: ValidatorVersionInfo{
				Name:         k.version,
				IsValid:      a.latest.IsValid,
				ErrorMessage: a.latest.ErrorMessage,
				DateExecuted: a.latest.DateExecuted.UTC(),
				PassingRate:  100 * float64(a.passed) / float64(a.runs),
				NumberOfRuns: a.runs,
			},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration (days and time part only) to seconds.
func ParseISODuration(s string) (float64, error) {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil || strings.HasSuffix(s, "T") || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return 0, NewValidationError("executionTime", "invalid ISO-8601 duration %q", s)
	}
	multipliers := []float64{86400, 3600, 60, 1}
	total := 0.0
	for i, mult := range multipliers {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, NewValidationError("executionTime", "invalid ISO-8601 duration %q", s)
		}
		total += v * mult
	}
	return total, nil
}

func indexed(field string, i int, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{
			Field:  field + "[" + strconv.Itoa(i) + "]." + ve.Field,
			Reason: ve.Reason,
		}
	}
	return err
}
