package sheetdb

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Query operators.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpIn           = "in"
	OpBetween      = "between"
)

var validOperators = []string{
	OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpIn, OpBetween,
}

// Condition represents a single query condition
type Condition struct {
	Column   string
	Operator string
	Value    Value   // Comparison value for ==, !=, >, >=, <, <=
	Values   []Value // Candidates for in, [min, max] for between
}

// Query represents a query with multiple conditions
type Query struct {
	Conditions []Condition // Evaluated as AND
	Limit      int
	Offset     int
}

// Equals builds the query selecting rows that carry every column of row with
// an equal value.
func Equals(row *Row) Query {
	q := Query{}
	for col, v := range row.All() {
		q.Conditions = append(q.Conditions, Condition{Column: col, Operator: OpEqual, Value: v})
	}
	return q
}

// evalCondition evaluates a single condition against a row
func evalCondition(row *Row, condition Condition) bool {
	value, exists := row.Get(condition.Column)

	switch condition.Operator {
	case OpEqual:
		return exists && value == condition.Value
	case OpNotEqual:
		// A missing column differs from any concrete value.
		return !exists || value != condition.Value
	case OpGreater:
		return exists && compareNumbers(value, condition.Value, func(a, b float64) bool { return a > b })
	case OpGreaterEqual:
		return exists && compareNumbers(value, condition.Value, func(a, b float64) bool { return a >= b })
	case OpLess:
		return exists && compareNumbers(value, condition.Value, func(a, b float64) bool { return a < b })
	case OpLessEqual:
		return exists && compareNumbers(value, condition.Value, func(a, b float64) bool { return a <= b })
	case OpIn:
		return exists && slices.Contains(condition.Values, value)
	case OpBetween:
		if !exists || len(condition.Values) != 2 {
			return false
		}
		return compareNumbers(value, condition.Values[0], func(a, b float64) bool { return a >= b }) &&
			compareNumbers(value, condition.Values[1], func(a, b float64) bool { return a <= b })
	default:
		return false
	}
}

// MatchesQuery checks if a row matches all conditions in the query
func (r *Row) MatchesQuery(query Query) bool {
	for _, condition := range query.Conditions {
		if !evalCondition(r, condition) {
			return false
		}
	}
	return true
}

// compareNumbers applies cmp when both values parse as numbers.
func compareNumbers(a, b Value, cmp func(a, b float64) bool) bool {
	af, ok := toFloat64(a)
	if !ok {
		return false
	}
	bf, ok := toFloat64(b)
	if !ok {
		return false
	}
	return cmp(af, bf)
}

func toFloat64(v Value) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Raw()), 64)
	return f, err == nil
}

// ApplyQuery filters rows based on query conditions
func ApplyQuery(rows []*Row, query Query) []*Row {
	var results []*Row

	for _, row := range rows {
		if row.MatchesQuery(query) {
			results = append(results, row)
		}
	}

	if query.Offset > 0 && query.Offset < len(results) {
		results = results[query.Offset:]
	} else if query.Offset >= len(results) {
		return []*Row{}
	}

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results
}

// ValidateQuery validates query structure
func ValidateQuery(query Query) error {
	for i, cond := range query.Conditions {
		if !slices.Contains(validOperators, cond.Operator) {
			return fmt.Errorf("%w: invalid operator '%s' in condition %d", ErrInvalidQuery, cond.Operator, i)
		}

		if cond.Operator == OpIn && len(cond.Values) == 0 {
			return fmt.Errorf("%w: operator 'in' requires at least one value in condition %d", ErrInvalidQuery, i)
		}

		if cond.Operator == OpBetween && len(cond.Values) != 2 {
			return fmt.Errorf("%w: operator 'between' requires exactly 2 values in condition %d", ErrInvalidQuery, i)
		}

		if cond.Column == "" {
			return fmt.Errorf("%w: empty column name in condition %d", ErrInvalidQuery, i)
		}
	}

	if query.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative", ErrInvalidQuery)
	}
	if query.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative", ErrInvalidQuery)
	}

	return nil
}
