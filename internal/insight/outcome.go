package insight

import "github.com/starford/planner/internal/models"

// Source records where a set of insights came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceRules     Source = "rules"
)

// Outcome carries either generated insights or the failure that prevented
// them. Err is kept after a fallback so callers can report it.
type Outcome struct {
	Insights []models.Insight `json:"insights"`
	Source   Source           `json:"source"`
	Err      error            `json:"-"`
}

// Generated wraps insights produced by the text generator.
func Generated(in []models.Insight) Outcome {
	if in == nil {
		in = []models.Insight{}
	}
	return Outcome{Insights: in, Source: SourceGenerated}
}

// Failed records a generator failure.
func Failed(err error) Outcome {
	return Outcome{Source: SourceGenerated, Err: err}
}

// OK reports whether the outcome holds usable insights.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Resolve returns o when it succeeded, otherwise the rule-based findings
// for s with o's error attached.
func Resolve(o Outcome, s Snapshot) Outcome {
	if o.OK() {
		return o
	}
	return Outcome{Insights: Analyze(s), Source: SourceRules, Err: o.Err}
}
