package files

import (
	"fmt"
	"strings"

	"github.com/rubiojr/filefinder/pkg/search"
)

// Field is a searchable column of the file cache.
type Field string

const (
	FieldPath  Field = "path"
	FieldName  Field = "name"
	FieldMtime Field = "mtime"
)

// ComparisonType is the operator of a Comparison.
type ComparisonType string

const (
	Like             ComparisonType = "like"
	LessThanEqual    ComparisonType = "lte"
	GreaterThanEqual ComparisonType = "gte"
)

// LogicalType is the operator of a Binary node.
type LogicalType string

const (
	OpAnd LogicalType = "and"
	OpOr  LogicalType = "or"
	OpNot LogicalType = "not"
)

// Operator is a node of a search tree: a Comparison leaf or a Binary node.
type Operator interface {
	fmt.Stringer
	operator()
}

// Comparison compares Field with Value. Like values use % and _ wildcards
// with \ as the escape character.
type Comparison struct {
	Type  ComparisonType
	Field Field
	Value any
}

// Binary combines its arguments. OpNot takes exactly one argument.
type Binary struct {
	Type LogicalType
	Args []Operator
}

func (*Comparison) operator() {}
func (*Binary) operator()     {}

func (c *Comparison) String() string {
	switch c.Type {
	case Like:
		return fmt.Sprintf("%s LIKE %q", c.Field, c.Value)
	case LessThanEqual:
		return fmt.Sprintf("%s <= %v", c.Field, c.Value)
	case GreaterThanEqual:
		return fmt.Sprintf("%s >= %v", c.Field, c.Value)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Type, c.Value)
}

func (b *Binary) String() string {
	if b.Type == OpNot && len(b.Args) == 1 {
		return "NOT " + b.Args[0].String()
	}
	parts := make([]string, len(b.Args))
	for i, a := range b.Args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, " "+strings.ToUpper(string(b.Type))+" ") + ")"
}

// And combines ops, collapsing a single operand to itself.
func And(ops ...Operator) Operator {
	if len(ops) == 1 {
		return ops[0]
	}
	return &Binary{Type: OpAnd, Args: ops}
}

// Or combines ops, collapsing a single operand to itself.
func Or(ops ...Operator) Operator {
	if len(ops) == 1 {
		return ops[0]
	}
	return &Binary{Type: OpOr, Args: ops}
}

// Not negates op.
func Not(op Operator) Operator {
	return &Binary{Type: OpNot, Args: []Operator{op}}
}

// Order sorts results by Field.
type Order struct {
	Field     Field
	Direction search.Order
}

// Query is a compiled search over the file cache of User.
type Query struct {
	Root  Operator
	Order []Order
	From  int
	Size  int
	// User scopes the search to a single home directory.
	User string
}

var _ search.Query = (*Query)(nil)

func (q *Query) Offset() int { return q.From }
func (q *Query) Limit() int  { return q.Size }
