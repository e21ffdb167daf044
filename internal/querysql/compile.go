// Package querysql compiles queryir queries to parameterized SQLite.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
)

// orderBy is the stable ordering of each table. Every Select ends with it
// so results never depend on SQLite's scan order.
var orderBy = map[string]string{
	queryir.TableRuns:       "id COLLATE BINARY ASC",
	queryir.TableViolations: "row_index ASC, rule_order ASC, id COLLATE BINARY ASC",
	queryir.TableAuditNotes: "row_index ASC, rule_order ASC, id COLLATE BINARY ASC",
}

// Compile validates q and converts it to SQL with ? placeholders.
// Values are never interpolated.
func Compile(q queryir.Query) (string, []any, error) {
	if errs := queryir.Validate(q); len(errs) > 0 {
		return "", nil, fmt.Errorf("invalid query: %w", errors.Join(errs...))
	}

	switch query := q.(type) {
	case queryir.Select:
		cols := "*"
		if len(query.Columns) > 0 {
			cols = strings.Join(query.Columns, ", ")
		}
		where, params, err := compileWhere(query.Filter)
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", cols, query.From, where, orderBy[query.From])
		return sql, params, nil

	case queryir.Count:
		where, params, err := compileWhere(query.Filter)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", query.From, where), params, nil

	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + sql, params, nil
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := irValueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", pred.Field, err)
		}
		return pred.Field + " = ?", []any{param}, nil

	case queryir.In:
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := irValueToParam(v)
			if err != nil {
				return "", nil, fmt.Errorf("column %s: %w", pred.Field, err)
			}
			params[i] = param
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), params, nil

	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(queryir.And); nested {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// irValueToParam converts a scalar IR value to a database/sql argument.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
