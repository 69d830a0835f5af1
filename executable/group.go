package executable

import (
	"iter"

	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
)

// OrderedGroupProvider 输入按分组列有序，分组键变化时输出上一组
// 没有分组列时整个输入是一组，即使输入为空也输出一行
type OrderedGroupProvider struct {
	base
	columns     []provider.AggregateColumn
	calculators []*Calculator
	groupKey    *transform.MapTransform
	descriptor  *tuple.Descriptor
}

func NewOrderedGroupProvider(origin *provider.AggregateProvider, source Provider) (*OrderedGroupProvider, error) {
	sh := source.Header()
	columns := origin.Columns()
	calculators := make([]*Calculator, len(columns))
	for i, c := range columns {
		valueType := tuple.TypeInt64
		if c.Source >= 0 {
			valueType = sh.Column(c.Source).Type
		}
		calculator, err := NewCalculator(c.Type, valueType)
		if err != nil {
			return nil, errors.WithMessagef(err, "aggregate column %s", c)
		}
		calculators[i] = calculator
	}
	groupKey, err := transform.NewSingleMapTransform(true, sh.Descriptor(), origin.GroupColumns())
	if err != nil {
		return nil, errors.WithMessage(err, "transform.NewSingleMapTransform failed")
	}
	return &OrderedGroupProvider{
		base:        base{origin: origin, sources: []Provider{source}},
		columns:     columns,
		calculators: calculators,
		groupKey:    groupKey,
		descriptor:  origin.Header().Descriptor(),
	}, nil
}

type group struct {
	key          tuple.Tuple
	accumulators []accumulator
}

func (p *OrderedGroupProvider) newGroup(key tuple.Tuple) *group {
	g := &group{key: key, accumulators: make([]accumulator, len(p.calculators))}
	for i, c := range p.calculators {
		g.accumulators[i] = c.create()
	}
	return g
}

func (p *OrderedGroupProvider) feed(g *group, row tuple.Tuple) error {
	for i, c := range p.columns {
		if c.Source < 0 {
			g.accumulators[i].add(nil)
			continue
		}
		v, _, err := row.GetValue(c.Source)
		if err != nil {
			return errors.WithMessagef(err, "aggregate column %s", c)
		}
		if v != nil {
			g.accumulators[i].add(v)
		}
	}
	return nil
}

func (p *OrderedGroupProvider) result(g *group) (tuple.Tuple, error) {
	values := tuple.Values(g.key)
	for _, a := range g.accumulators {
		values = append(values, a.result())
	}
	row, err := tuple.FromValues(p.descriptor, values...)
	if err != nil {
		return nil, errors.WithMessage(err, "build group result failed")
	}
	return tuple.ToFastReadOnly(row), nil
}

func (p *OrderedGroupProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		var current *group
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			key, err := p.groupKey.Apply(transform.Copy, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if current != nil && !tuple.Equal(current.key, key) {
				result, err := p.result(current)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(result, nil) {
					return
				}
				current = nil
			}
			if current == nil {
				current = p.newGroup(key)
			}
			if err := p.feed(current, row); err != nil {
				yield(nil, err)
				return
			}
		}
		if current == nil && p.groupKey.Descriptor().Count() == 0 {
			current = p.newGroup(tuple.MustFromValues(p.groupKey.Descriptor()))
		}
		if current != nil {
			result, err := p.result(current)
			if err != nil {
				yield(nil, err)
				return
			}
			yield(result, nil)
		}
	}
}
