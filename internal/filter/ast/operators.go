package ast

import "strings"

// Operator is a filter operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpContains
	OpContainsAny
	OpContainsAll
	OpContainsNone
	OpStartsWith
	OpEndsWith
	OpAnd
	OpOr
	OpNot
)

var operatorNames = map[Operator]string{
	OpEqual:        "=",
	OpNotEqual:     "!=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpContains:     "contains",
	OpContainsAny:  "containsAny",
	OpContainsAll:  "containsAll",
	OpContainsNone: "containsNone",
	OpStartsWith:   "startsWith",
	OpEndsWith:     "endsWith",
	OpAnd:          "and",
	OpOr:           "or",
	OpNot:          "not",
}

// wordOperators maps lowercase operator words to operators
var wordOperators = map[string]Operator{
	"and":          OpAnd,
	"or":           OpOr,
	"contains":     OpContains,
	"containsany":  OpContainsAny,
	"containsall":  OpContainsAll,
	"containsnone": OpContainsNone,
	"startswith":   OpStartsWith,
	"endswith":     OpEndsWith,
}

// String returns the canonical spelling of the operator
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// IsLogic reports whether the operator combines two predicates
func (o Operator) IsLogic() bool {
	return o == OpAnd || o == OpOr
}

// IsWord reports whether the operator is spelled with letters
func (o Operator) IsWord() bool {
	return o >= OpContains && o <= OpNot
}

// IsOrdering reports whether the operator needs an ordered type
func (o Operator) IsOrdering() bool {
	return o >= OpLess && o <= OpGreaterEqual
}

// IsStringMatch reports whether the operator matches parts of strings
func (o Operator) IsStringMatch() bool {
	return o == OpStartsWith || o == OpEndsWith
}

// LookupWordOperator finds a word operator, case-insensitively
func LookupWordOperator(word string) (Operator, bool) {
	op, ok := wordOperators[strings.ToLower(word)]
	return op, ok
}

// LookupSymbolOperator finds a symbolic operator such as ">=" or "&&"
func LookupSymbolOperator(sym string) (Operator, bool) {
	switch sym {
	case "=", "==":
		return OpEqual, true
	case "!=":
		return OpNotEqual, true
	case "<":
		return OpLess, true
	case "<=":
		return OpLessEqual, true
	case ">":
		return OpGreater, true
	case ">=":
		return OpGreaterEqual, true
	case "&&":
		return OpAnd, true
	case "||":
		return OpOr, true
	}
	return 0, false
}
