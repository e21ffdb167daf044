package compiler

import (
	"fmt"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

// Validation error codes (E100-E199)
const (
	ErrRuleIDEmpty        = "E101" // rule id is required
	ErrDuplicateRuleID    = "E102" // two rules share an id
	ErrUnknownContextDate = "E103" // {{name}} or ref names no context date
	ErrUnknownKeywordList = "E104" // keywords_from names no context list
	ErrEmptyKeywordList   = "E105" // keyword list resolves to nothing
	ErrEmptyCondition     = "E106" // all/any with no children
	ErrEvidenceField      = "E107" // evidence entry without a field name
	ErrBadLiteral         = "E108" // literal is not valid for the declared type
	ErrSelfReference      = "E109" // comparison of a field against itself
)

// ValidationError represents a rule set validation error.
type ValidationError struct {
	RuleID  string `json:"rule_id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("[%s] rule %s: %s: %s", e.Code, e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled rule set. Returns all errors found (does not
// fail fast). Context references are checked only when ctx is non-nil.
func Validate(rules []ir.Rule, ctx *ir.Context) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int, len(rules))

	for i, r := range rules {
		if strings.TrimSpace(r.ID) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rules[%d].id", i),
				Message: "id is required and must be non-empty",
				Code:    ErrRuleIDEmpty,
			})
		} else if prev, dup := seen[r.ID]; dup {
			errs = append(errs, ValidationError{
				RuleID:  r.ID,
				Field:   fmt.Sprintf("rules[%d].id", i),
				Message: fmt.Sprintf("duplicate rule id (first declared at rules[%d])", prev),
				Code:    ErrDuplicateRuleID,
			})
		} else {
			seen[r.ID] = i
		}

		for j, ev := range r.Evidence {
			if strings.TrimSpace(ev.Field) == "" {
				errs = append(errs, ValidationError{
					RuleID:  r.ID,
					Field:   fmt.Sprintf("evidence[%d]", j),
					Message: "evidence entry needs a field name",
					Code:    ErrEvidenceField,
				})
			}
		}

		w := &condWalker{rule: r.ID, ctx: ctx}
		w.walk(r.When, "when")
		errs = append(errs, w.errs...)
	}
	return errs
}

type condWalker struct {
	rule string
	ctx  *ir.Context
	errs []ValidationError
}

func (w *condWalker) add(path, code, format string, args ...any) {
	w.errs = append(w.errs, ValidationError{
		RuleID:  w.rule,
		Field:   path,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (w *condWalker) walk(c ir.Condition, path string) {
	switch n := c.(type) {
	case ir.All:
		w.children(n.Children, path+".all")
	case ir.Any:
		w.children(n.Children, path+".any")
	case ir.Compare:
		w.operand(n.Value, path)
		if n.Value.Kind == ir.OperandField && n.Value.Ref == n.Field && n.Value.OffsetDays == 0 {
			w.add(path, ErrSelfReference, "field %q is compared against itself", n.Field)
		}
		if n.Value.Kind == ir.OperandLiteral {
			w.literal(n, path)
		}
	case ir.Contains:
		w.keywords(n.Keywords, path)
	case ir.YearsAfter:
		w.operand(n.Ref, path)
	case ir.DateDiff:
		w.operand(n.Ref, path)
	case ir.FieldKeywords:
		w.keywords(n.Keywords, path)
	case ir.ColumnKeywords:
		w.keywords(n.Keywords, path)
	}
}

func (w *condWalker) children(cs []ir.Condition, path string) {
	if len(cs) == 0 {
		w.add(path, ErrEmptyCondition, "combinator has no conditions")
	}
	for i, c := range cs {
		w.walk(c, fmt.Sprintf("%s[%d]", path, i))
	}
}

func (w *condWalker) operand(o ir.Operand, path string) {
	if o.Kind != ir.OperandContext || w.ctx == nil {
		return
	}
	if _, ok := w.ctx.Date(o.Ref); !ok {
		w.add(path, ErrUnknownContextDate, "context date %q is not defined", o.Ref)
	}
}

func (w *condWalker) keywords(k ir.Keywords, path string) {
	if len(k.Inline) > 0 {
		return
	}
	if w.ctx == nil {
		return
	}
	list, ok := w.ctx.KeywordList(k.From)
	if !ok {
		w.add(path, ErrUnknownKeywordList, "keyword list %q is not defined", k.From)
		return
	}
	if len(list) == 0 {
		w.add(path, ErrEmptyKeywordList, "keyword list %q is empty", k.From)
	}
}

// literal checks that a literal operand parses under an explicit type.
// Auto-typed literals are resolved against the field at evaluation time.
func (w *condWalker) literal(c ir.Compare, path string) {
	var layouts []string
	if w.ctx != nil {
		layouts = w.ctx.DateFormats
	}
	switch c.Type {
	case ir.TypeDate:
		if _, ok := normalize.ParseDate(c.Value.Literal, layouts); !ok {
			w.add(path, ErrBadLiteral, "%q is not a date", c.Value.Literal)
		}
	case ir.TypeMoney:
		if _, ok := normalize.ParseMoney(c.Value.Literal); !ok {
			w.add(path, ErrBadLiteral, "%q is not an amount", c.Value.Literal)
		}
	}
}
