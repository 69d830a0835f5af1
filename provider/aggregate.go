package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// AggregateType 聚合类型
type AggregateType string

const (
	AggregateSum   AggregateType = "sum"
	AggregateAvg   AggregateType = "avg"
	AggregateMax   AggregateType = "max"
	AggregateMin   AggregateType = "min"
	AggregateCount AggregateType = "count"
)

// ResultType 聚合结果的类型
//   - count: int64
//   - sum: int64、float64、decimal 保持原类型
//   - avg: int64、float64 为 float64，decimal 为 decimal
//   - min、max: 原类型
func (t AggregateType) ResultType(source tuple.FieldType) (tuple.FieldType, error) {
	switch t {
	case AggregateCount:
		return tuple.TypeInt64, nil
	case AggregateSum:
		if source.IsNumeric() {
			return source, nil
		}
	case AggregateAvg:
		switch source {
		case tuple.TypeInt64, tuple.TypeFloat64:
			return tuple.TypeFloat64, nil
		case tuple.TypeDecimal:
			return tuple.TypeDecimal, nil
		}
	case AggregateMin, AggregateMax:
		if source.IsValid() {
			return source, nil
		}
	default:
		return 0, errors.Wrapf(ErrInvalidProvider, "unknown aggregate type %q", t)
	}
	return 0, errors.Wrapf(ErrInvalidProvider, "%s does not support %s", t, source)
}

// AggregateColumn 对 Source 列做 Type 聚合，count 的 Source 为 -1 时统计行数
type AggregateColumn struct {
	Source int
	Type   AggregateType
	Name   string
}

func (c AggregateColumn) String() string {
	if c.Source < 0 {
		return fmt.Sprintf("%s(*)", c.Type)
	}
	return fmt.Sprintf("%s(%d)", c.Type, c.Source)
}

// AggregateProvider 按 GroupColumns 分组聚合，输出分组列和聚合列
// 没有分组列时整个输入作为一组，输出恰好一行
type AggregateProvider struct {
	unary
	groupColumns []int
	columns      []AggregateColumn
	header       *Header
}

func NewAggregateProvider(source CompilableProvider, groupColumns []int, columns ...AggregateColumn) (*AggregateProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	sh := source.Header()

	var resultColumns []Column
	for i, g := range groupColumns {
		if err := sh.checkColumn(g); err != nil {
			return nil, err
		}
		if slices.Contains(groupColumns[i+1:], g) {
			return nil, errors.Wrapf(ErrInvalidProvider, "group column %d repeated", g)
		}
		resultColumns = append(resultColumns, sh.Column(g))
	}
	for i := range columns {
		c := &columns[i]
		sourceType := tuple.TypeInt64
		if c.Source >= 0 || c.Type != AggregateCount {
			if err := sh.checkColumn(c.Source); err != nil {
				return nil, err
			}
			sourceType = sh.Column(c.Source).Type
		}
		resultType, err := c.Type.ResultType(sourceType)
		if err != nil {
			return nil, err
		}
		name := c.Name
		if name == "" {
			name = string(c.Type)
			if c.Source >= 0 {
				name += "(" + sh.Column(c.Source).Name + ")"
			}
		}
		resultColumns = append(resultColumns, Column{Name: name, Type: resultType})
	}

	// 输入按分组列有序时，输出保持分组列的顺序
	var order Ordering
	if so := sh.Order(); so.Groups(groupColumns) {
		for _, item := range so[:len(groupColumns)] {
			order = append(order, OrderItem{Index: slices.Index(groupColumns, item.Index), Direction: item.Direction})
		}
	}
	header, err := NewHeader(resultColumns, order)
	if err != nil {
		return nil, err
	}
	return &AggregateProvider{
		unary:        unary{source: source},
		groupColumns: slices.Clone(groupColumns),
		columns:      slices.Clone(columns),
		header:       header,
	}, nil
}

func (p *AggregateProvider) Type() ProviderType               { return TypeAggregate }
func (p *AggregateProvider) Header() *Header                  { return p.header }
func (p *AggregateProvider) GroupColumns() []int              { return slices.Clone(p.groupColumns) }
func (p *AggregateProvider) Columns() []AggregateColumn       { return slices.Clone(p.columns) }
func (p *AggregateProvider) RequiredOrder() Ordering          { return Asc(p.groupColumns...) }
func (p *AggregateProvider) IsOrderSatisfied(o Ordering) bool { return o.Groups(p.groupColumns) }

func (p *AggregateProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewAggregateProvider(sources[0], p.groupColumns, p.columns...)
}

func (p *AggregateProvider) String() string {
	items := make([]string, len(p.columns))
	for i, c := range p.columns {
		items[i] = c.String()
	}
	groups := make([]string, len(p.groupColumns))
	for i, g := range p.groupColumns {
		groups[i] = fmt.Sprint(g)
	}
	return fmt.Sprintf("Aggregate(%s; group by %s)", strings.Join(items, ", "), strings.Join(groups, ", "))
}
