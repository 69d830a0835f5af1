package transform

import (
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

var (
	ErrSourceCount = errors.New("source tuple count mismatch")
	ErrInvalidMap  = errors.New("invalid transform map")
)

// TransformType 变换结果的形态
type TransformType uint8

const (
	// View 惰性视图，不复制数据，非只读时写操作回写到源元组
	View TransformType = iota
	// Copy 物化成独立的 RegularTuple
	Copy
)

func (t TransformType) String() string {
	if t == Copy {
		return "Copy"
	}
	return "View"
}

// Transform 由一个或多个源元组生成派生元组
type Transform interface {
	Descriptor() *tuple.Descriptor
	IsReadOnly() bool
	SourceCount() int
	Apply(transformType TransformType, sources ...tuple.Tuple) (tuple.Tuple, error)
}

// materialize 按变换类型返回视图或副本，只读变换的副本同样只读
func materialize(transformType TransformType, readOnly bool, view tuple.Tuple) tuple.Tuple {
	if transformType != Copy {
		return view
	}
	if readOnly {
		return tuple.ToFastReadOnly(view)
	}
	return tuple.Clone(view)
}

func checkSources(expected int, sources []tuple.Tuple) error {
	if len(sources) != expected {
		return errors.Wrapf(ErrSourceCount, "expected %d, got %d", expected, len(sources))
	}
	for i, s := range sources {
		if s == nil {
			return errors.Wrapf(ErrSourceCount, "source %d is nil", i)
		}
	}
	return nil
}
