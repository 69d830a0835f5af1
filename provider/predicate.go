package provider

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// Operand 比较条件的操作数
type Operand interface {
	FieldType(header *Header) (tuple.FieldType, error)
	// Value 返回操作数的值，nil 表示 Null
	Value(row tuple.Tuple, params *ParameterContext) (any, error)
	String() string
}

type columnOperand int

// ColumnOf 当前行的第 i 列
func ColumnOf(i int) Operand { return columnOperand(i) }

func (c columnOperand) FieldType(header *Header) (tuple.FieldType, error) {
	if err := header.checkColumn(int(c)); err != nil {
		return 0, err
	}
	return header.Column(int(c)).Type, nil
}

func (c columnOperand) Value(row tuple.Tuple, _ *ParameterContext) (any, error) {
	v, _, err := row.GetValue(int(c))
	return v, err
}

func (c columnOperand) String() string { return fmt.Sprintf("$%d", int(c)) }

type constOperand struct {
	fieldType tuple.FieldType
	value     any
}

// Const 常量，value 为 nil 时表示 Null
func Const(fieldType tuple.FieldType, value any) (Operand, error) {
	t, err := tuple.FromValues(tuple.MustNewDescriptor(fieldType), value)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedOperand, "%v is not %s", value, fieldType)
	}
	v, _, _ := t.GetValue(0)
	return constOperand{fieldType: fieldType, value: v}, nil
}

func (c constOperand) FieldType(*Header) (tuple.FieldType, error) { return c.fieldType, nil }

func (c constOperand) Value(tuple.Tuple, *ParameterContext) (any, error) { return c.value, nil }

func (c constOperand) String() string {
	if c.value == nil {
		return "<null>"
	}
	return fmt.Sprint(c.value)
}

type paramOperand struct {
	parameter *Parameter
}

// Param 枚举时才取值的参数
func Param(p *Parameter) Operand { return paramOperand{parameter: p} }

func (p paramOperand) FieldType(*Header) (tuple.FieldType, error) {
	return p.parameter.FieldType(), nil
}

func (p paramOperand) Value(_ tuple.Tuple, params *ParameterContext) (any, error) {
	return params.Value(p.parameter)
}

func (p paramOperand) String() string { return p.parameter.String() }

type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

func (op CompareOp) match(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// Condition Left Op Right，任意一侧为 Null 时不成立
type Condition struct {
	Left  Operand
	Op    CompareOp
	Right Operand
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c Condition) compile(header *Header) (func(tuple.Tuple, *ParameterContext) (bool, error), error) {
	if c.Left == nil || c.Right == nil {
		return nil, errors.Wrap(ErrUnsupportedOperand, "operand is nil")
	}
	switch c.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
	default:
		return nil, errors.Wrapf(ErrUnsupportedOperand, "unknown operator %q", c.Op)
	}
	lt, err := c.Left.FieldType(header)
	if err != nil {
		return nil, err
	}
	rt, err := c.Right.FieldType(header)
	if err != nil {
		return nil, err
	}
	if lt != rt {
		return nil, errors.Wrapf(ErrUnsupportedOperand, "%s: %s compared with %s", c, lt, rt)
	}
	return func(row tuple.Tuple, params *ParameterContext) (bool, error) {
		l, err := c.Left.Value(row, params)
		if err != nil {
			return false, err
		}
		r, err := c.Right.Value(row, params)
		if err != nil {
			return false, err
		}
		if l == nil || r == nil {
			return false, nil
		}
		return c.Op.match(tuple.CompareValues(lt, l, r)), nil
	}, nil
}

// Where 所有条件同时成立的过滤，条件在构造时做类型检查
func Where(source CompilableProvider, conditions ...Condition) (*FilterProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	checks := make([]func(tuple.Tuple, *ParameterContext) (bool, error), len(conditions))
	descriptions := make([]string, len(conditions))
	for i, c := range conditions {
		check, err := c.compile(source.Header())
		if err != nil {
			return nil, err
		}
		checks[i], descriptions[i] = check, c.String()
	}
	predicate := func(row tuple.Tuple, params *ParameterContext) (bool, error) {
		for _, check := range checks {
			ok, err := check(row, params)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return NewFilterProvider(source, predicate, strings.Join(descriptions, " AND "))
}
