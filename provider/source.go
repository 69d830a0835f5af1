package provider

import (
	"fmt"

	"github.com/hatlonely/rse/index"
	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// IndexProvider 按索引键顺序扫描整个索引
type IndexProvider struct {
	leaf
	index  *schema.IndexInfo
	header *Header
}

func NewIndexProvider(info *schema.IndexInfo) (*IndexProvider, error) {
	if info == nil {
		return nil, errors.Wrap(ErrInvalidProvider, "index is nil")
	}
	return &IndexProvider{index: info, header: HeaderFromIndex(info)}, nil
}

func (p *IndexProvider) Type() ProviderType       { return TypeIndex }
func (p *IndexProvider) Header() *Header          { return p.header }
func (p *IndexProvider) Index() *schema.IndexInfo { return p.index }

func (p *IndexProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 0); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *IndexProvider) String() string {
	return fmt.Sprintf("Index(%s)", p.index.Name())
}

// RawProvider 字面量行，可以声明行已经满足的顺序
type RawProvider struct {
	leaf
	header *Header
	rows   []tuple.Tuple
}

func NewRawProvider(header *Header, rows ...tuple.Tuple) (*RawProvider, error) {
	if header == nil {
		return nil, errors.Wrap(ErrInvalidProvider, "header is nil")
	}
	stored := make([]tuple.Tuple, len(rows))
	for i, row := range rows {
		if row == nil || !row.Descriptor().Equal(header.Descriptor()) {
			return nil, errors.Wrapf(ErrInvalidProvider, "row %d does not match %s", i, header.Descriptor())
		}
		stored[i] = tuple.ToFastReadOnly(row)
	}
	return &RawProvider{header: header, rows: stored}, nil
}

func (p *RawProvider) Type() ProviderType { return TypeRaw }
func (p *RawProvider) Header() *Header    { return p.header }

// Rows 只读的行
func (p *RawProvider) Rows() []tuple.Tuple {
	return append([]tuple.Tuple(nil), p.rows...)
}

func (p *RawProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 0); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RawProvider) String() string {
	return fmt.Sprintf("Raw(%d rows)", len(p.rows))
}

// RangeSource 在枚举时计算要扫描的键区间集合
type RangeSource func(comparer *index.KeyComparer, params *ParameterContext) (*rangeset.RangeSet[index.Entire], error)

// ConstantRangeSet 与参数无关的区间集合，每次调用返回副本
func ConstantRangeSet(set *rangeset.RangeSet[index.Entire]) RangeSource {
	return func(*index.KeyComparer, *ParameterContext) (*rangeset.RangeSet[index.Entire], error) {
		return set.Clone(), nil
	}
}

// RangeQuery 以 RangeQuery 描述的单个区间
func RangeQuery(query *index.RangeQuery) RangeSource {
	return func(comparer *index.KeyComparer, _ *ParameterContext) (*rangeset.RangeSet[index.Entire], error) {
		return query.ToRangeSet(comparer), nil
	}
}

// KeyEqual 键前缀等于参数值的区间，参数为 Null 时为空集
func KeyEqual(parameters ...*Parameter) RangeSource {
	return func(comparer *index.KeyComparer, params *ParameterContext) (*rangeset.RangeSet[index.Entire], error) {
		types := make([]tuple.FieldType, len(parameters))
		values := make([]any, len(parameters))
		for i, p := range parameters {
			v, err := params.Value(p)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return rangeset.NewFullOrEmpty[index.Entire](false, comparer), nil
			}
			types[i], values[i] = p.FieldType(), v
		}
		descriptor, err := tuple.NewDescriptor(types...)
		if err != nil {
			return nil, errors.Wrap(ErrParameterType, err.Error())
		}
		key, err := tuple.FromValues(descriptor, values...)
		if err != nil {
			return nil, errors.Wrap(ErrParameterType, err.Error())
		}
		return rangeset.NewRangeSet(index.Point(key), rangeset.AdvancedComparer[index.Entire](comparer)), nil
	}
}

// RangeSetProvider 按区间集合扫描索引，输出按索引键有序
type RangeSetProvider struct {
	leaf
	index       *schema.IndexInfo
	header      *Header
	source      RangeSource
	description string
}

func NewRangeSetProvider(info *schema.IndexInfo, source RangeSource, description string) (*RangeSetProvider, error) {
	if info == nil || source == nil {
		return nil, errors.Wrap(ErrInvalidProvider, "index and range source are required")
	}
	return &RangeSetProvider{index: info, header: HeaderFromIndex(info), source: source, description: description}, nil
}

func (p *RangeSetProvider) Type() ProviderType       { return TypeRangeSet }
func (p *RangeSetProvider) Header() *Header          { return p.header }
func (p *RangeSetProvider) Index() *schema.IndexInfo { return p.index }

// RangeSet 计算本次枚举的区间集合
func (p *RangeSetProvider) RangeSet(comparer *index.KeyComparer, params *ParameterContext) (*rangeset.RangeSet[index.Entire], error) {
	set, err := p.source(comparer, params)
	if err != nil {
		return nil, errors.WithMessagef(err, "range set of %s", p.index.Name())
	}
	return set, nil
}

func (p *RangeSetProvider) WithSources(sources ...CompilableProvider) (CompilableProvider, error) {
	if err := checkSourceCount(p, sources, 0); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RangeSetProvider) String() string {
	if p.description == "" {
		return fmt.Sprintf("RangeSet(%s)", p.index.Name())
	}
	return fmt.Sprintf("RangeSet(%s, %s)", p.index.Name(), p.description)
}
