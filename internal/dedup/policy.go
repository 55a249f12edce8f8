package dedup

// Verdict is the outcome of a duplicate check.
type Verdict string

const (
	VerdictFresh     Verdict = "fresh"
	VerdictDuplicate Verdict = "duplicate"
)

// Policy centralizes the fail-closed decisions: what to assume when a check
// itself fails. A false negative publishes duplicate content, so the defaults
// trade recall for safety and resolve uncertainty as duplicate.
type Policy struct {
	// OnJudgmentFailure applies when the semantic theme judgment call fails
	// (network or parse error).
	OnJudgmentFailure Verdict
	// OnHistoryReadFailure applies when the topic-history lookup fails.
	OnHistoryReadFailure Verdict
}

// DefaultPolicy returns the fail-closed defaults.
func DefaultPolicy() Policy {
	return Policy{
		OnJudgmentFailure:    VerdictDuplicate,
		OnHistoryReadFailure: VerdictDuplicate,
	}
}
