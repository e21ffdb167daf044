package ir

// Finding is the shape shared by violations and audit notes.
type Finding struct {
	ID          string         `json:"id"`
	RuleID      string         `json:"rule_id"`
	RuleName    string         `json:"rule_name"`
	Severity    Severity       `json:"severity"`
	Citations   []string       `json:"citations,omitempty"`
	Explanation string         `json:"explanation"`
	Entity      EntityIdentity `json:"entity"`
	RowIndex    int            `json:"row_index"`
	Evidence    IRObject       `json:"evidence"`

	// ruleOrder is the declaration index of the producing rule, used for
	// deterministic sorting. Cross-source findings sort after row rules.
	ruleOrder int
}

// RuleOrder returns the declaration index of the rule that produced f.
func (f Finding) RuleOrder() int {
	return f.ruleOrder
}

// WithRuleOrder returns f with its sort position set.
func (f Finding) WithRuleOrder(order int) Finding {
	f.ruleOrder = order
	return f
}

// Violation is a claim: a rule fired on a record or a consistency group.
type Violation struct {
	Finding
}

// AuditNote is informational output with the same shape as a Violation.
// It is never counted as a violation.
type AuditNote struct {
	Finding
}
