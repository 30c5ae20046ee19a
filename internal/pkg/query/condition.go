package query

import "fmt"

// Condition is one WHERE predicate. SQL returns the fragment and its parameters, named
// with Spanner's @p<index> convention starting at paramIndex.
type Condition interface {
	SQL(paramIndex int) (string, map[string]interface{})
}

// cmpCondition compares a column against one bound value.
type cmpCondition struct {
	field string
	op    string
	value interface{}
}

// Eq generates "field = @pN".
func Eq(field string, value interface{}) Condition {
	return &cmpCondition{field: field, op: "=", value: value}
}

// Gt generates "field > @pN". Used for keyset pagination cursors.
func Gt(field string, value interface{}) Condition {
	return &cmpCondition{field: field, op: ">", value: value}
}

// Lt generates "field < @pN". Used for retention cutoffs.
func Lt(field string, value interface{}) Condition {
	return &cmpCondition{field: field, op: "<", value: value}
}

func (c *cmpCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	paramName := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s %s @%s", c.field, c.op, paramName), map[string]interface{}{
		paramName: c.value,
	}
}
