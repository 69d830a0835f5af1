package executable

import (
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrUnsupportedAggregate = errors.New("unsupported aggregate")

// accumulator 一个分组中一个聚合列的累加状态，Null 不参与累加
type accumulator interface {
	add(value any)
	result() any
}

// Calculator 按聚合类型和值类型选定的累加策略，编译时构建一次
type Calculator struct {
	aggregate  provider.AggregateType
	valueType  tuple.FieldType
	resultType tuple.FieldType
	create     func() accumulator
}

func (c *Calculator) Aggregate() provider.AggregateType { return c.aggregate }
func (c *Calculator) ResultType() tuple.FieldType       { return c.resultType }

type calculatorKey struct {
	aggregate provider.AggregateType
	valueType tuple.FieldType
}

var calculators = map[calculatorKey]func() accumulator{
	{provider.AggregateSum, tuple.TypeInt64}:   func() accumulator { return &sumInt64{} },
	{provider.AggregateSum, tuple.TypeFloat64}: func() accumulator { return &sumFloat64{} },
	{provider.AggregateSum, tuple.TypeDecimal}: func() accumulator { return &sumDecimal{} },
	{provider.AggregateAvg, tuple.TypeInt64}:   func() accumulator { return &avgInt64{} },
	{provider.AggregateAvg, tuple.TypeFloat64}: func() accumulator { return &avgFloat64{} },
	{provider.AggregateAvg, tuple.TypeDecimal}: func() accumulator { return &avgDecimal{} },
}

// NewCalculator 查找策略表，count、min、max 对所有类型可用
func NewCalculator(aggregate provider.AggregateType, valueType tuple.FieldType) (*Calculator, error) {
	resultType, err := aggregate.ResultType(valueType)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedAggregate, err.Error())
	}
	c := &Calculator{aggregate: aggregate, valueType: valueType, resultType: resultType}
	switch aggregate {
	case provider.AggregateCount:
		c.create = func() accumulator { return &counter{} }
	case provider.AggregateMin:
		c.create = func() accumulator { return &extremum{fieldType: valueType, sign: -1} }
	case provider.AggregateMax:
		c.create = func() accumulator { return &extremum{fieldType: valueType, sign: 1} }
	default:
		create, ok := calculators[calculatorKey{aggregate, valueType}]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedAggregate, "%s of %s", aggregate, valueType)
		}
		c.create = create
	}
	return c, nil
}

type counter struct {
	n int64
}

func (c *counter) add(any)     { c.n++ }
func (c *counter) result() any { return c.n }

type sumInt64 struct {
	sum int64
	n   int64
}

func (s *sumInt64) add(v any) {
	s.sum += v.(int64)
	s.n++
}

func (s *sumInt64) result() any {
	if s.n == 0 {
		return nil
	}
	return s.sum
}

type sumFloat64 struct {
	sum float64
	n   int64
}

func (s *sumFloat64) add(v any) {
	s.sum += v.(float64)
	s.n++
}

func (s *sumFloat64) result() any {
	if s.n == 0 {
		return nil
	}
	return s.sum
}

type sumDecimal struct {
	sum decimal.Decimal
	n   int64
}

func (s *sumDecimal) add(v any) {
	s.sum = s.sum.Add(v.(decimal.Decimal))
	s.n++
}

func (s *sumDecimal) result() any {
	if s.n == 0 {
		return nil
	}
	return s.sum
}

// avgInt64 整数和保持精确，最后一步才转换为浮点数
type avgInt64 struct {
	sumInt64
}

func (a *avgInt64) result() any {
	if a.n == 0 {
		return nil
	}
	return float64(a.sum) / float64(a.n)
}

type avgFloat64 struct {
	sumFloat64
}

func (a *avgFloat64) result() any {
	if a.n == 0 {
		return nil
	}
	return a.sum / float64(a.n)
}

type avgDecimal struct {
	sumDecimal
}

func (a *avgDecimal) result() any {
	if a.n == 0 {
		return nil
	}
	return a.sum.Div(decimal.NewFromInt(a.n))
}

// extremum sign 为 1 时取最大值，-1 时取最小值
type extremum struct {
	fieldType tuple.FieldType
	sign      int
	value     any
}

func (e *extremum) add(v any) {
	if e.value == nil || tuple.CompareValues(e.fieldType, v, e.value)*e.sign > 0 {
		e.value = v
	}
}

func (e *extremum) result() any { return e.value }
