package executable

import (
	"iter"

	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
)

// scan 逐行输出，每次拉取前检查上下文
func scan(ctx *EnumerationContext, rows iter.Seq[tuple.Tuple], yield func(tuple.Tuple, error) bool) {
	for row := range rows {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !yield(row, nil) {
			return
		}
	}
}

// IndexProvider 在索引快照上按键顺序扫描
type IndexProvider struct {
	base
	node *provider.IndexProvider
}

func NewIndexProvider(origin *provider.IndexProvider) *IndexProvider {
	return &IndexProvider{base: base{origin: origin}, node: origin}
}

func (p *IndexProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		snapshot, err := ctx.snapshot(p.node.Index())
		if err != nil {
			yield(nil, err)
			return
		}
		scan(ctx, snapshot.All(rangeset.Positive), yield)
	}
}

// RangeSetProvider 在索引快照上扫描区间集合，区间在枚举时计算
type RangeSetProvider struct {
	base
	node *provider.RangeSetProvider
}

func NewRangeSetProvider(origin *provider.RangeSetProvider) *RangeSetProvider {
	return &RangeSetProvider{base: base{origin: origin}, node: origin}
}

func (p *RangeSetProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		snapshot, err := ctx.snapshot(p.node.Index())
		if err != nil {
			yield(nil, err)
			return
		}
		set, err := p.node.RangeSet(snapshot.KeyComparer(), ctx.Parameters())
		if err != nil {
			yield(nil, err)
			return
		}
		scan(ctx, snapshot.RangeSet(set, rangeset.Positive), yield)
	}
}

type RawProvider struct {
	base
	rows []tuple.Tuple
}

func NewRawProvider(origin *provider.RawProvider) *RawProvider {
	return &RawProvider{base: base{origin: origin}, rows: origin.Rows()}
}

func (p *RawProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		scan(ctx, func(y func(tuple.Tuple) bool) {
			for _, row := range p.rows {
				if !y(row) {
					return
				}
			}
		}, yield)
	}
}
