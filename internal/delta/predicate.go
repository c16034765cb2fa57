package delta

import (
	"fmt"
	"strings"
	"time"

	"lakehouse-gateway/internal/model"
)

// EvaluateFilter reports whether a row satisfies a filter. A nil or
// empty filter matches every row.
func EvaluateFilter(filter *model.Filter, row model.Row) (bool, error) {
	if filter == nil || len(filter.Predicates) == 0 {
		return true, nil
	}
	useOr := strings.EqualFold(filter.LogicalOperator, "OR")

	for _, pred := range filter.Predicates {
		matched, err := evaluatePredicate(pred, row)
		if err != nil {
			return false, err
		}
		if useOr && matched {
			return true, nil
		}
		if !useOr && !matched {
			return false, nil
		}
	}
	return !useOr, nil
}

func evaluatePredicate(pred model.Predicate, row model.Row) (bool, error) {
	value, present := row[pred.Column]

	op := strings.ToUpper(pred.Operator)
	if op == "IS_NULL" {
		return !present || value == nil, nil
	}
	if value == nil {
		return false, nil
	}

	switch op {
	case "EQ":
		cmp, ok := compareValues(value, pred.Value)
		return ok && cmp == 0, nil
	case "NEQ":
		cmp, ok := compareValues(value, pred.Value)
		return !ok || cmp != 0, nil
	case "LT":
		cmp, ok := compareValues(value, pred.Value)
		return ok && cmp < 0, nil
	case "LTE":
		cmp, ok := compareValues(value, pred.Value)
		return ok && cmp <= 0, nil
	case "GT":
		cmp, ok := compareValues(value, pred.Value)
		return ok && cmp > 0, nil
	case "GTE":
		cmp, ok := compareValues(value, pred.Value)
		return ok && cmp >= 0, nil
	case "IN":
		for _, candidate := range pred.Values {
			if cmp, ok := compareValues(value, candidate); ok && cmp == 0 {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported predicate operator %q", pred.Operator)
	}
}

// compareValues orders two row values of possibly different dynamic
// types. Numbers compare numerically across int and float forms; the
// second return is false when the values are not comparable.
func compareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		if a == b {
			return 0, true
		}
		return 0, false
	}

	if an, aok := toFloat(a); aok {
		if bn, bok := toFloat(b); bok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0, true
			}
			if !av {
				return -1, true
			}
			return 1, true
		}
	case time.Time:
		if bt, err := coerceTime(b); err == nil {
			switch {
			case av.Before(bt):
				return -1, true
			case av.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ApplyAssignments returns a copy of the row with each assignment
// applied. Arithmetic ops require the target column to hold a number.
func ApplyAssignments(schema *model.TableSchema, row model.Row, assignments []model.Assignment) (model.Row, error) {
	updated := make(model.Row, len(row))
	for k, v := range row {
		updated[k] = v
	}

	for _, assign := range assignments {
		col := schema.Column(assign.Column)
		if col == nil {
			return nil, fmt.Errorf("%w: assignment targets unknown column %q", ErrSchemaMismatch, assign.Column)
		}

		switch strings.ToLower(assign.Op) {
		case "set":
			encoded, err := encodeValue(*col, assign.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
			}
			decoded, err := decodeValue(*col, encoded)
			if err != nil {
				return nil, err
			}
			updated[assign.Column] = decoded
		case "multiply", "add":
			current, ok := toFloat(updated[assign.Column])
			if !ok {
				return nil, fmt.Errorf("%w: column %q is not numeric", ErrSchemaMismatch, assign.Column)
			}
			operand, ok := toFloat(assign.Value)
			if !ok {
				return nil, fmt.Errorf("%w: assignment value for %q is not numeric", ErrSchemaMismatch, assign.Column)
			}
			var result float64
			if strings.ToLower(assign.Op) == "multiply" {
				result = current * operand
			} else {
				result = current + operand
			}
			if col.Type == model.ColumnTypeInteger {
				updated[assign.Column] = int64(result)
			} else {
				updated[assign.Column] = result
			}
		default:
			return nil, fmt.Errorf("unsupported assignment op %q", assign.Op)
		}
	}
	return updated, nil
}
