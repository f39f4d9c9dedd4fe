package domain

// Metrics is the aggregate for one (version, partner) pair, or the ALL rollup.
// Every pointer is nil until the first data point of that kind arrives.
type Metrics struct {
	ExecutionStatusCount *ExecutionStatusCount  `json:"executionStatusCount,omitempty"`
	ExecutionTime        *StatisticMetric       `json:"executionTime,omitempty"`
	CPU                  *StatisticMetric       `json:"cpu,omitempty"`
	Memory               *StatisticMetric       `json:"memory,omitempty"`
	Cost                 *StatisticMetric       `json:"cost,omitempty"`
	ValidationStatus     *ValidationStatusCount `json:"validationStatus,omitempty"`
}

// Apply merges a batch into m. On error m is left untouched.
func (m *Metrics) Apply(b Batch) error {
	next := m.Clone()

	if b.HasExecutions() {
		counts := next.ExecutionStatusCount.Add(b.StatusCounts)
		counter, err := NewExecutionStatusCount(counts)
		if err != nil {
			return err
		}
		next.ExecutionStatusCount = counter
	}

	if err := mergeStatistic(&next.ExecutionTime, b.ExecutionTime, UnitSeconds); err != nil {
		return err
	}
	if err := mergeStatistic(&next.CPU, b.CPU, UnitCPUs); err != nil {
		return err
	}
	if err := mergeStatistic(&next.Memory, b.Memory, UnitGB); err != nil {
		return err
	}
	if err := mergeStatistic(&next.Cost, b.Cost, UnitUSD); err != nil {
		return err
	}

	for _, v := range b.Validations {
		if next.ValidationStatus == nil {
			next.ValidationStatus = &ValidationStatusCount{}
		}
		if err := next.ValidationStatus.Accumulate(v.Tool, v.Info); err != nil {
			return err
		}
	}

	*m = *next
	return nil
}

// Combine merges another aggregate into m. On error m is left untouched.
func (m *Metrics) Combine(other *Metrics) error {
	if other == nil {
		return nil
	}
	b := Batch{}
	if other.ExecutionStatusCount != nil {
		b.StatusCounts = other.ExecutionStatusCount.Add(nil)
	}
	if other.ExecutionTime != nil {
		b.ExecutionTime = other.ExecutionTime.Batch()
	}
	if other.CPU != nil {
		b.CPU = other.CPU.Batch()
	}
	if other.Memory != nil {
		b.Memory = other.Memory.Batch()
	}
	if other.Cost != nil {
		b.Cost = other.Cost.Batch()
	}
	if other.ValidationStatus != nil {
		for tool, info := range other.ValidationStatus.ValidatorTools {
			for _, rec := range info.ValidatorVersions {
				b.Validations = append(b.Validations, ValidationRecord{Tool: tool, Info: rec})
			}
		}
	}
	return m.Apply(b)
}

// HasExecutionData reports whether any run was counted.
func (m *Metrics) HasExecutionData() bool {
	return m != nil && m.ExecutionStatusCount != nil && m.ExecutionStatusCount.NumberOfExecutions() > 0
}

// HasValidationData reports whether any validator tool was recorded.
func (m *Metrics) HasValidationData() bool {
	return m != nil && m.ValidationStatus != nil && len(m.ValidationStatus.ValidatorTools) > 0
}

// Clone returns a deep copy; a nil receiver yields an empty aggregate.
func (m *Metrics) Clone() *Metrics {
	out := &Metrics{}
	if m == nil {
		return out
	}
	if m.ExecutionStatusCount != nil {
		out.ExecutionStatusCount = &ExecutionStatusCount{Count: m.ExecutionStatusCount.Add(nil)}
	}
	out.ExecutionTime = cloneStatistic(m.ExecutionTime)
	out.CPU = cloneStatistic(m.CPU)
	out.Memory = cloneStatistic(m.Memory)
	out.Cost = cloneStatistic(m.Cost)
	if m.ValidationStatus != nil {
		vs := &ValidationStatusCount{ValidatorTools: make(map[ValidatorTool]*ValidationInfo, len(m.ValidationStatus.ValidatorTools))}
		for tool, info := range m.ValidationStatus.ValidatorTools {
			cp := *info
			cp.ValidatorVersions = append([]ValidatorVersionInfo(nil), info.ValidatorVersions...)
			vs.ValidatorTools[tool] = &cp
		}
		out.ValidationStatus = vs
	}
	return out
}

func cloneStatistic(s *StatisticMetric) *StatisticMetric {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// VersionMetrics is every aggregate stored for one version.
type VersionMetrics struct {
	EntryID     string               `json:"entryId"`
	VersionName string               `json:"versionName"`
	Partners    map[Partner]*Metrics `json:"partners"`
	All         *Metrics             `json:"all,omitempty"`
}
