package detector

import "arbScope/internal/evaluator"

// Outcome classifies one route evaluation.
type Outcome int

const (
	OutcomeOpportunity Outcome = iota
	OutcomeNoOpportunity
	OutcomeNotReady
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpportunity:
		return "opportunity"
	case OutcomeNoOpportunity:
		return "no_opportunity"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classify maps a completed evaluation to an outcome. A result that passed
// through a pool without reserves is inconclusive, never a non-opportunity.
func Classify(res evaluator.Result) Outcome {
	if res.NotReady || res.FinalAmount == nil || res.StartAmount == nil {
		return OutcomeNotReady
	}
	if res.FinalAmount.Gt(res.StartAmount) {
		return OutcomeOpportunity
	}
	return OutcomeNoOpportunity
}

// Evaluation is the classified result of one route.
type Evaluation struct {
	RouteID string
	Outcome Outcome
	Result  evaluator.Result
	Err     error
}
