package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// Predicate 过滤条件，params 为本次枚举的参数
type Predicate func(row tuple.Tuple, params *ParameterContext) (bool, error)

type FilterProvider struct {
	unary
	predicate   Predicate
	description string
}

func NewFilterProvider(source CompilableProvider, predicate Predicate, description string) (*FilterProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if predicate == nil {
		return nil, errors.Wrap(ErrInvalidProvider, "predicate is nil")
	}
	return &FilterProvider{unary: unary{source: source}, predicate: predicate, description: description}, nil
}

func (p *FilterProvider) Type() ProviderType   { return TypeFilter }
func (p *FilterProvider) Header() *Header      { return p.source.Header() }
func (p *FilterProvider) Predicate() Predicate { return p.predicate }

func (p *FilterProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewFilterProvider(sources[0], p.predicate, p.description)
}

func (p *FilterProvider) String() string {
	return fmt.Sprintf("Filter(%s)", p.description)
}

// SelectProvider 投影
type SelectProvider struct {
	unary
	columns []int
	header  *Header
}

func NewSelectProvider(source CompilableProvider, columns ...int) (*SelectProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	header, err := source.Header().Select(columns)
	if err != nil {
		return nil, err
	}
	return &SelectProvider{unary: unary{source: source}, columns: slices.Clone(columns), header: header}, nil
}

func (p *SelectProvider) Type() ProviderType { return TypeSelect }
func (p *SelectProvider) Header() *Header    { return p.header }
func (p *SelectProvider) Columns() []int     { return slices.Clone(p.columns) }

func (p *SelectProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewSelectProvider(sources[0], p.columns...)
}

func (p *SelectProvider) String() string {
	items := make([]string, len(p.columns))
	for i, c := range p.columns {
		items[i] = fmt.Sprint(c)
	}
	return fmt.Sprintf("Select(%s)", strings.Join(items, ", "))
}

func checkOrder(header *Header, order Ordering) error {
	if len(order) == 0 {
		return errors.Wrap(ErrInvalidProvider, "order is empty")
	}
	for _, item := range order {
		if err := header.checkColumn(item.Index); err != nil {
			return err
		}
	}
	return nil
}

// SortProvider 稳定排序，输出顺序为 Order
type SortProvider struct {
	unary
	order  Ordering
	header *Header
}

func NewSortProvider(source CompilableProvider, order Ordering) (*SortProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if err := checkOrder(source.Header(), order); err != nil {
		return nil, err
	}
	header, err := source.Header().WithOrder(slices.Clone(order))
	if err != nil {
		return nil, err
	}
	return &SortProvider{unary: unary{source: source}, order: slices.Clone(order), header: header}, nil
}

func (p *SortProvider) Type() ProviderType { return TypeSort }
func (p *SortProvider) Header() *Header    { return p.header }
func (p *SortProvider) Order() Ordering    { return slices.Clone(p.order) }

// IsRedundant 数据源已经满足排序要求
func (p *SortProvider) IsRedundant() bool {
	return p.source.Header().Order().HasPrefix(p.order)
}

func (p *SortProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewSortProvider(sources[0], p.order)
}

func (p *SortProvider) String() string {
	return fmt.Sprintf("Sort(%s)", p.order)
}

// ReindexProvider 按 Order 重建临时索引后输出，行集合不变
type ReindexProvider struct {
	unary
	order  Ordering
	header *Header
}

func NewReindexProvider(source CompilableProvider, order Ordering) (*ReindexProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if err := checkOrder(source.Header(), order); err != nil {
		return nil, err
	}
	header, err := source.Header().WithOrder(slices.Clone(order))
	if err != nil {
		return nil, err
	}
	return &ReindexProvider{unary: unary{source: source}, order: slices.Clone(order), header: header}, nil
}

func (p *ReindexProvider) Type() ProviderType { return TypeReindex }
func (p *ReindexProvider) Header() *Header    { return p.header }
func (p *ReindexProvider) Order() Ordering    { return slices.Clone(p.order) }

func (p *ReindexProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewReindexProvider(sources[0], p.order)
}

func (p *ReindexProvider) String() string {
	return fmt.Sprintf("Reindex(%s)", p.order)
}

// Count Take 和 Skip 的行数，Parameter 不为空时在枚举时取参数值
type Count struct {
	Value     int64
	Parameter *Parameter
}

func ConstCount(n int64) Count      { return Count{Value: n} }
func ParamCount(p *Parameter) Count { return Count{Parameter: p} }

// Resolve 计算行数，负数按 0 处理
func (c Count) Resolve(params *ParameterContext) (int64, error) {
	n := c.Value
	if c.Parameter != nil {
		v, err := params.Int64(c.Parameter)
		if err != nil {
			return 0, err
		}
		n = v
	}
	return max(n, 0), nil
}

func (c Count) String() string {
	if c.Parameter != nil {
		return c.Parameter.String()
	}
	return fmt.Sprint(c.Value)
}

func checkCount(c Count) error {
	if c.Parameter != nil && c.Parameter.FieldType() != tuple.TypeInt64 {
		return errors.Wrapf(ErrParameterType, "%s must be int64", c.Parameter)
	}
	if c.Parameter == nil && c.Value < 0 {
		return errors.Wrapf(ErrInvalidProvider, "count %d is negative", c.Value)
	}
	return nil
}

// TakeProvider 最多输出 Count 行
type TakeProvider struct {
	unary
	count Count
}

func NewTakeProvider(source CompilableProvider, count Count) (*TakeProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if err := checkCount(count); err != nil {
		return nil, err
	}
	return &TakeProvider{unary: unary{source: source}, count: count}, nil
}

func (p *TakeProvider) Type() ProviderType { return TypeTake }
func (p *TakeProvider) Header() *Header    { return p.source.Header() }
func (p *TakeProvider) Count() Count       { return p.count }

func (p *TakeProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewTakeProvider(sources[0], p.count)
}

func (p *TakeProvider) String() string {
	return fmt.Sprintf("Take(%s)", p.count)
}

// SkipProvider 跳过前 Count 行
type SkipProvider struct {
	unary
	count Count
}

func NewSkipProvider(source CompilableProvider, count Count) (*SkipProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if err := checkCount(count); err != nil {
		return nil, err
	}
	return &SkipProvider{unary: unary{source: source}, count: count}, nil
}

func (p *SkipProvider) Type() ProviderType { return TypeSkip }
func (p *SkipProvider) Header() *Header    { return p.source.Header() }
func (p *SkipProvider) Count() Count       { return p.count }

func (p *SkipProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewSkipProvider(sources[0], p.count)
}

func (p *SkipProvider) String() string {
	return fmt.Sprintf("Skip(%s)", p.count)
}

// StoreProvider 物化边界，同一个枚举上下文中数据源只枚举一次
type StoreProvider struct {
	unary
	name string
}

// NewStoreProvider name 为空时生成随机名字
func NewStoreProvider(source CompilableProvider, name string) (*StoreProvider, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if name == "" {
		name = uuid.NewString()
	}
	return &StoreProvider{unary: unary{source: source}, name: name}, nil
}

func (p *StoreProvider) Type() ProviderType { return TypeStore }
func (p *StoreProvider) Header() *Header    { return p.source.Header() }
func (p *StoreProvider) Name() string       { return p.name }

func (p *StoreProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 1); err != nil {
		return nil, err
	}
	return NewStoreProvider(sources[0], p.name)
}

func (p *StoreProvider) String() string {
	return fmt.Sprintf("Store(%s)", p.name)
}
