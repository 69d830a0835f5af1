package executable

import (
	"iter"
	"slices"

	"github.com/google/btree"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/tuple"
	"github.com/hatlonely/rse/tuple/transform"
	"github.com/pkg/errors"
)

type FilterProvider struct {
	base
	node *provider.FilterProvider
}

func NewFilterProvider(origin *provider.FilterProvider, source Provider) *FilterProvider {
	return &FilterProvider{base: base{origin: origin, sources: []Provider{source}}, node: origin}
}

func (p *FilterProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	predicate := p.node.Predicate()
	return func(yield func(tuple.Tuple, error) bool) {
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := predicate(row, ctx.Parameters())
			if err != nil {
				yield(nil, errors.WithMessagef(err, "filter %s", tuple.Format(row)))
				return
			}
			if ok && !yield(row, nil) {
				return
			}
		}
	}
}

// SelectProvider 输出源行的只读映射视图，不复制数据
type SelectProvider struct {
	base
	transform *transform.MapTransform
}

func NewSelectProvider(origin *provider.SelectProvider, source Provider) (*SelectProvider, error) {
	m, err := transform.NewSingleMapTransform(true, source.Header().Descriptor(), origin.Columns())
	if err != nil {
		return nil, errors.WithMessage(err, "transform.NewSingleMapTransform failed")
	}
	return &SelectProvider{base: base{origin: origin, sources: []Provider{source}}, transform: m}, nil
}

func (p *SelectProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			view, err := p.transform.Apply(transform.View, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(view, nil) {
				return
			}
		}
	}
}

func compareOrder(order provider.Ordering, a, b tuple.Tuple) int {
	for _, item := range order {
		if c := tuple.CompareField(a, b, item.Index); c != 0 {
			return c * int(item.Direction)
		}
	}
	return 0
}

// SortProvider 物化后稳定排序
type SortProvider struct {
	base
	order provider.Ordering
}

func NewSortProvider(origin *provider.SortProvider, source Provider) *SortProvider {
	return &SortProvider{base: base{origin: origin, sources: []Provider{source}}, order: origin.Order()}
}

func (p *SortProvider) Order() provider.Ordering { return slices.Clone(p.order) }

func (p *SortProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		rows, err := Collect(ctx, p.sources[0])
		if err != nil {
			yield(nil, err)
			return
		}
		slices.SortStableFunc(rows, func(a, b tuple.Tuple) int {
			return compareOrder(p.order, a, b)
		})
		scan(ctx, slices.Values(rows), yield)
	}
}

type reindexEntry struct {
	row      tuple.Tuple
	sequence int
}

// ReindexProvider 把源行放入以排序列加到达序号为键的临时 B 树
type ReindexProvider struct {
	base
	order  provider.Ordering
	degree int
}

func NewReindexProvider(origin *provider.ReindexProvider, source Provider, degree int) *ReindexProvider {
	if degree < 2 {
		degree = 32
	}
	return &ReindexProvider{base: base{origin: origin, sources: []Provider{source}}, order: origin.Order(), degree: degree}
}

func (p *ReindexProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		tree := btree.NewG(p.degree, func(a, b reindexEntry) bool {
			if c := compareOrder(p.order, a.row, b.row); c != 0 {
				return c < 0
			}
			return a.sequence < b.sequence
		})
		sequence := 0
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			tree.ReplaceOrInsert(reindexEntry{row: row, sequence: sequence})
			sequence++
		}
		tree.Ascend(func(e reindexEntry) bool {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return false
			}
			return yield(e.row, nil)
		})
	}
}

// TakeProvider 输出到 Count 行后立即停止拉取数据源
type TakeProvider struct {
	base
	count provider.Count
}

func NewTakeProvider(origin *provider.TakeProvider, source Provider) *TakeProvider {
	return &TakeProvider{base: base{origin: origin, sources: []Provider{source}}, count: origin.Count()}
}

func (p *TakeProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		limit, err := p.count.Resolve(ctx.Parameters())
		if err != nil {
			yield(nil, err)
			return
		}
		if limit == 0 {
			return
		}
		var n int64
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
			if n++; n >= limit {
				return
			}
		}
	}
}

type SkipProvider struct {
	base
	count provider.Count
}

func NewSkipProvider(origin *provider.SkipProvider, source Provider) *SkipProvider {
	return &SkipProvider{base: base{origin: origin, sources: []Provider{source}}, count: origin.Count()}
}

func (p *SkipProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		skip, err := p.count.Resolve(ctx.Parameters())
		if err != nil {
			yield(nil, err)
			return
		}
		var n int64
		for row, err := range p.sources[0].Enumerate(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			if n < skip {
				n++
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// StoredProvider 第一次枚举时把数据源物化到上下文的缓存中，之后的枚举直接回放
type StoredProvider struct {
	base
	name string
}

func NewStoredProvider(origin provider.CompilableProvider, source Provider, name string) *StoredProvider {
	return &StoredProvider{base: base{origin: origin, sources: []Provider{source}}, name: name}
}

func (p *StoredProvider) Name() string { return p.name }

func (p *StoredProvider) Enumerate(ctx *EnumerationContext) iter.Seq2[tuple.Tuple, error] {
	return func(yield func(tuple.Tuple, error) bool) {
		rows, ok, err := ctx.load(p.name)
		if err != nil {
			yield(nil, err)
			return
		}
		if !ok {
			if rows, err = p.materialize(ctx); err != nil {
				yield(nil, err)
				return
			}
		}
		scan(ctx, slices.Values(rows), yield)
	}
}

func (p *StoredProvider) materialize(ctx *EnumerationContext) ([]tuple.Tuple, error) {
	rows := []tuple.Tuple{}
	for row, err := range p.sources[0].Enumerate(ctx) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, tuple.ToFastReadOnly(row))
	}
	if err := ctx.store(p.name, rows); err != nil {
		return nil, err
	}
	ctx.Logger().DebugContext(ctx.Context(), "provider materialized", "name", p.name, "rows", len(rows))
	return rows, nil
}
