package transform

import (
	"fmt"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// MapEntry 目标字段的来源：第 Source 个源元组的第 Field 个字段
type MapEntry struct {
	Source int
	Field  int
}

// MapTransform 按 (源元组, 字段) 映射表把多个源元组重组成一个元组
type MapTransform struct {
	descriptor  *tuple.Descriptor
	readOnly    bool
	entries     []MapEntry
	sourceCount int
}

func NewMapTransform(readOnly bool, descriptor *tuple.Descriptor, entries []MapEntry) (*MapTransform, error) {
	if descriptor == nil {
		return nil, errors.Wrap(ErrInvalidMap, "descriptor is nil")
	}
	if len(entries) != descriptor.Count() {
		return nil, errors.Wrapf(ErrInvalidMap, "descriptor has %d fields, map has %d entries", descriptor.Count(), len(entries))
	}
	sourceCount := 0
	for i, e := range entries {
		if e.Source < 0 || e.Field < 0 {
			return nil, errors.Wrapf(ErrInvalidMap, "entry %d: (%d, %d)", i, e.Source, e.Field)
		}
		if e.Source+1 > sourceCount {
			sourceCount = e.Source + 1
		}
	}
	if sourceCount == 0 {
		sourceCount = 1
	}
	return &MapTransform{
		descriptor:  descriptor,
		readOnly:    readOnly,
		entries:     append([]MapEntry(nil), entries...),
		sourceCount: sourceCount,
	}, nil
}

// NewSingleMapTransform 单源映射，fieldMap[i] 为目标第 i 个字段在源元组中的位置
// 目标 Descriptor 由源 Descriptor 推导
func NewSingleMapTransform(readOnly bool, source *tuple.Descriptor, fieldMap []int) (*MapTransform, error) {
	types := make([]tuple.FieldType, len(fieldMap))
	entries := make([]MapEntry, len(fieldMap))
	for i, f := range fieldMap {
		t, err := source.FieldType(f)
		if err != nil {
			return nil, errors.WithMessagef(err, "map entry %d", i)
		}
		types[i] = t
		entries[i] = MapEntry{Source: 0, Field: f}
	}
	descriptor, err := tuple.NewDescriptor(types...)
	if err != nil {
		return nil, err
	}
	return NewMapTransform(readOnly, descriptor, entries)
}

func (m *MapTransform) Descriptor() *tuple.Descriptor { return m.descriptor }
func (m *MapTransform) IsReadOnly() bool              { return m.readOnly }
func (m *MapTransform) SourceCount() int              { return m.sourceCount }

// Entries 映射表副本
func (m *MapTransform) Entries() []MapEntry {
	return append([]MapEntry(nil), m.entries...)
}

func (m *MapTransform) Apply(transformType TransformType, sources ...tuple.Tuple) (tuple.Tuple, error) {
	if err := checkSources(m.sourceCount, sources); err != nil {
		return nil, err
	}
	for i, e := range m.entries {
		if e.Field >= sources[e.Source].Count() {
			return nil, errors.Wrapf(tuple.ErrIndexOutOfRange, "map entry %d refers to field %d of source %d with %d fields", i, e.Field, e.Source, sources[e.Source].Count())
		}
	}
	view := &MapTuple{
		transform: m,
		sources:   append([]tuple.Tuple(nil), sources...),
	}
	return materialize(transformType, m.readOnly, view), nil
}

func (m *MapTransform) String() string {
	return fmt.Sprintf("Map%v -> %s", m.entries, m.descriptor)
}

// MapTuple MapTransform 生成的视图元组
type MapTuple struct {
	transform *MapTransform
	sources   []tuple.Tuple
}

func (t *MapTuple) Descriptor() *tuple.Descriptor { return t.transform.descriptor }
func (t *MapTuple) Count() int                    { return len(t.transform.entries) }
func (t *MapTuple) IsReadOnly() bool              { return t.transform.readOnly }

// Sources 视图引用的源元组
func (t *MapTuple) Sources() []tuple.Tuple { return t.sources }

func (t *MapTuple) entry(i int) (MapEntry, error) {
	if i < 0 || i >= len(t.transform.entries) {
		return MapEntry{}, errors.Wrapf(tuple.ErrIndexOutOfRange, "field %d of %d", i, len(t.transform.entries))
	}
	return t.transform.entries[i], nil
}

func (t *MapTuple) GetFieldState(i int) (tuple.FieldState, error) {
	e, err := t.entry(i)
	if err != nil {
		return tuple.NotAvailable, err
	}
	return t.sources[e.Source].GetFieldState(e.Field)
}

func (t *MapTuple) GetValue(i int) (any, tuple.FieldState, error) {
	e, err := t.entry(i)
	if err != nil {
		return nil, tuple.NotAvailable, err
	}
	return t.sources[e.Source].GetValue(e.Field)
}

func (t *MapTuple) SetValue(i int, value any) error {
	if t.transform.readOnly {
		return tuple.ErrReadOnly
	}
	e, err := t.entry(i)
	if err != nil {
		return err
	}
	return t.sources[e.Source].SetValue(e.Field, value)
}

func (t *MapTuple) String() string {
	return tuple.Format(t)
}
