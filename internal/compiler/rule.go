package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// RuleValues returns the rule entries of a rules document in declaration
// order. "rules" may be a list or a struct keyed by rule id; for a struct the
// returned labels hold the keys, for a list they are empty.
func RuleValues(doc cue.Value) ([]cue.Value, []string, error) {
	if err := doc.Err(); err != nil {
		return nil, nil, formatCUEError(err)
	}
	rulesVal := doc.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, nil, &CompileError{Field: "rules", Message: "rules is required", Pos: doc.Pos()}
	}

	var vals []cue.Value
	var labels []string
	switch rulesVal.IncompleteKind() {
	case cue.ListKind:
		iter, err := rulesVal.List()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		for iter.Next() {
			vals = append(vals, iter.Value())
			labels = append(labels, "")
		}
	case cue.StructKind:
		iter, err := rulesVal.Fields()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		for iter.Next() {
			vals = append(vals, iter.Value())
			labels = append(labels, iter.Label())
		}
	default:
		return nil, nil, &CompileError{Field: "rules", Message: "rules must be a list or a struct", Pos: rulesVal.Pos()}
	}
	return vals, labels, nil
}

// CompileRules compiles every rule of a document, stopping at the first
// error.
func CompileRules(doc cue.Value) ([]ir.Rule, error) {
	vals, labels, err := RuleValues(doc)
	if err != nil {
		return nil, err
	}
	rules := make([]ir.Rule, 0, len(vals))
	for i, v := range vals {
		r, err := CompileRule(v, labels[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// CompileRule parses one rule. label is the struct key the rule was declared
// under, used as the id when the rule has no id field.
//
//	{
//	    id:        "EXT-001"
//	    name:      "Post-Discharge Balance"
//	    severity:  "Extreme"
//	    citations: ["§1681e(b)"]
//	    explain:   "Balance reported after discharge."
//	    when: all: [{field: "report_date", op: ">", value: "{{discharge_date}}", type: "date"}]
//	    evidence: ["balance", {field: "report_date", type: "date"}]
//	}
func CompileRule(v cue.Value, label string) (ir.Rule, error) {
	var r ir.Rule
	if err := v.Err(); err != nil {
		return r, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return r, &CompileError{Field: "rule", Message: "rule must be a struct", Pos: v.Pos()}
	}

	id, err := optionalString(v, "id")
	if err != nil {
		return r, err
	}
	if id == "" {
		id = label
	}
	if strings.TrimSpace(id) == "" {
		return r, &CompileError{Field: "id", Message: "id is required", Pos: v.Pos()}
	}
	r.ID = strings.TrimSpace(id)

	if r.Name, err = optionalString(v, "name"); err != nil {
		return r, err
	}
	if r.Name == "" {
		r.Name = r.ID
	}

	sevVal := v.LookupPath(cue.ParsePath("severity"))
	if !sevVal.Exists() {
		return r, &CompileError{Field: "severity", Message: fmt.Sprintf("rule %s: severity is required", r.ID), Pos: v.Pos()}
	}
	sevStr, err := sevVal.String()
	if err != nil {
		return r, formatCUEError(err)
	}
	if r.Severity, err = ir.ParseSeverity(sevStr); err != nil {
		return r, &CompileError{Field: "severity", Message: fmt.Sprintf("rule %s: %v", r.ID, err), Pos: sevVal.Pos()}
	}

	kind, err := optionalString(v, "kind")
	if err != nil {
		return r, err
	}
	r.Kind = ir.KindViolation
	if kind != "" {
		r.Kind = ir.RuleKind(strings.ToLower(kind))
		if !ir.ValidRuleKinds[r.Kind] {
			return r, &CompileError{Field: "kind", Message: fmt.Sprintf("rule %s: kind must be violation or audit, got %q", r.ID, kind), Pos: v.Pos()}
		}
	}

	// "statutes" is accepted as an older spelling of citations.
	for _, key := range []string{"citations", "statutes"} {
		cv := v.LookupPath(cue.ParsePath(key))
		if !cv.Exists() {
			continue
		}
		list, err := stringList(cv, key)
		if err != nil {
			return r, err
		}
		r.Citations = append(r.Citations, list...)
	}

	for _, key := range []string{"explain", "explanation"} {
		s, err := optionalString(v, key)
		if err != nil {
			return r, err
		}
		if s != "" {
			r.Explain = s
			break
		}
	}

	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return r, &CompileError{Field: "when", Message: fmt.Sprintf("rule %s: when is required", r.ID), Pos: v.Pos()}
	}
	if r.When, err = CompileCondition(whenVal); err != nil {
		return r, err
	}

	evVal := v.LookupPath(cue.ParsePath("evidence"))
	if evVal.Exists() {
		if r.Evidence, err = parseEvidence(evVal); err != nil {
			return r, err
		}
	}

	return r, nil
}

// parseEvidence accepts a list of field names or {field, type} structs.
func parseEvidence(v cue.Value) ([]ir.EvidenceField, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "evidence", Message: "evidence must be a list", Pos: v.Pos()}
	}
	var out []ir.EvidenceField
	for iter.Next() {
		item := iter.Value()
		if s, err := item.String(); err == nil {
			out = append(out, ir.EvidenceField{Field: s, Type: ir.TypeText})
			continue
		}
		field, err := requiredString(item, "field")
		if err != nil {
			return nil, err
		}
		typ, err := valueType(item)
		if err != nil {
			return nil, err
		}
		if typ == ir.TypeAuto {
			typ = ir.TypeText
		}
		out = append(out, ir.EvidenceField{Field: field, Type: typ})
	}
	return out, nil
}

func optionalString(v cue.Value, key string) (string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: key, Message: key + " must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func requiredString(v cue.Value, key string) (string, error) {
	s, err := optionalString(v, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", &CompileError{Field: key, Message: key + " is required", Pos: v.Pos()}
	}
	return strings.TrimSpace(s), nil
}

// stringList accepts a list of strings or a single string.
func stringList(v cue.Value, field string) ([]string, error) {
	if s, err := v.String(); err == nil {
		return []string{s}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: field + " must be a string or a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: field + " entries must be strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
