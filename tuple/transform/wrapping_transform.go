package transform

import (
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// WrappingTransform 一对一透传，结果与源元组形状相同
type WrappingTransform struct {
	descriptor *tuple.Descriptor
	readOnly   bool
}

func NewWrappingTransform(readOnly bool, descriptor *tuple.Descriptor) *WrappingTransform {
	return &WrappingTransform{descriptor: descriptor, readOnly: readOnly}
}

// NewReadOnlyTransform 只读包装，用于把存储中的元组交给调用方
func NewReadOnlyTransform(descriptor *tuple.Descriptor) *WrappingTransform {
	return NewWrappingTransform(true, descriptor)
}

func (w *WrappingTransform) Descriptor() *tuple.Descriptor { return w.descriptor }
func (w *WrappingTransform) IsReadOnly() bool              { return w.readOnly }
func (w *WrappingTransform) SourceCount() int              { return 1 }

func (w *WrappingTransform) Apply(transformType TransformType, sources ...tuple.Tuple) (tuple.Tuple, error) {
	if err := checkSources(1, sources); err != nil {
		return nil, err
	}
	if !sources[0].Descriptor().Equal(w.descriptor) {
		return nil, errors.Wrapf(ErrInvalidMap, "wrapping %s over %s", w.descriptor, sources[0].Descriptor())
	}
	view := &WrappingTuple{origin: sources[0], readOnly: w.readOnly}
	return materialize(transformType, w.readOnly, view), nil
}

// WrappingTuple 透传到 origin 的视图
type WrappingTuple struct {
	origin   tuple.Tuple
	readOnly bool
}

func (t *WrappingTuple) Origin() tuple.Tuple           { return t.origin }
func (t *WrappingTuple) Descriptor() *tuple.Descriptor { return t.origin.Descriptor() }
func (t *WrappingTuple) Count() int                    { return t.origin.Count() }
func (t *WrappingTuple) IsReadOnly() bool              { return t.readOnly }

func (t *WrappingTuple) GetFieldState(i int) (tuple.FieldState, error) {
	return t.origin.GetFieldState(i)
}

func (t *WrappingTuple) GetValue(i int) (any, tuple.FieldState, error) {
	return t.origin.GetValue(i)
}

func (t *WrappingTuple) SetValue(i int, value any) error {
	if t.readOnly {
		return tuple.ErrReadOnly
	}
	return t.origin.SetValue(i, value)
}

func (t *WrappingTuple) String() string {
	return tuple.Format(t)
}
