package executable

import (
	"iter"

	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
)

// NestedLoopJoinProvider 对左侧每一行重新枚举右侧，右侧通常是 StoredProvider
// 输出左右两行拼接的只读视图，Null 不与任何值相等
type NestedLoopJoinProvider struct {
	base
	joinType provider.JoinType
	pairs    []provider.JoinPair
	types    []tuple.FieldType
	combine  *transform.CombineTransform
	nulls    tuple.Tuple
}

func NewNestedLoopJoinProvider(origin *provider.JoinProvider, left, right Provider) (*NestedLoopJoinProvider, error) {
	ld, rd := left.Header().Descriptor(), right.Header().Descriptor()
	combine, err := transform.NewCombineTransform(true, ld, rd)
	if err != nil {
		return nil, errors.WithMessage(err, "transform.NewCombineTransform failed")
	}
	nulls, err := tuple.FromValues(rd, make([]any, rd.Count())...)
	if err != nil {
		return nil, err
	}
	pairs := origin.Pairs()
	types := make([]tuple.FieldType, len(pairs))
	for i, pair := range pairs {
		if types[i], err = ld.FieldType(pair.Left); err != nil {
			return nil, err
		}
	}
	return &NestedLoopJoinProvider{
		base:     base{origin: origin, sources: []Provider{left, right}},
		joinType: origin.JoinType(),
		pairs:    pairs,
		types:    types,
		combine:  combine,
		nulls:    tuple.ToFastReadOnly(nulls),
	}, nil
}

func (p *NestedLoopJoinProvider) match(left, right tuple.Tuple) (bool, error) {
	for i, pair := range p.pairs {
		lv, _, err := left.GetValue(pair.Left)
		if err != nil {
			return false, err
		}
		rv, _, err := right.GetValue(pair.Right)
		if err != nil {
			return false, err
		}
		if lv == nil || rv == nil || tuple.CompareValues(p.types[i], lv, rv) != 0 {
			return false, nil
		}
	}
	return true, nil
}

func (p *NestedLoopJoinProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		emit := func(left, right tuple.Tuple) bool {
			row, err := p.combine.Apply(transform.View, left, right)
			if err != nil {
				yield(nil, err)
				return false
			}
			return yield(row, nil)
		}
		for left, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			matched := false
			for right, err := range p.sources[1].Enumerate(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}
				ok, err := p.match(left, right)
				if err != nil {
					yield(nil, err)
					return
				}
				if !ok {
					continue
				}
				matched = true
				if !emit(left, right) {
					return
				}
			}
			if !matched && p.joinType == provider.LeftOuterJoin && !emit(left, p.nulls) {
				return
			}
		}
	}
}
