package provider

import (
	"sync"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// Parameter 查询中延迟绑定的标量参数，按指针区分
type Parameter struct {
	name       string
	descriptor *tuple.Descriptor
}

func NewParameter(name string, fieldType tuple.FieldType) *Parameter {
	return &Parameter{name: name, descriptor: tuple.MustNewDescriptor(fieldType)}
}

func (p *Parameter) Name() string { return p.name }

func (p *Parameter) FieldType() tuple.FieldType {
	return p.descriptor.Types()[0]
}

func (p *Parameter) String() string {
	return "@" + p.name
}

// ParameterBinding 参数的取值函数，在枚举时才调用
type ParameterBinding struct {
	Parameter *Parameter
	Accessor  func() any
}

func Bind(p *Parameter, accessor func() any) ParameterBinding {
	return ParameterBinding{Parameter: p, Accessor: accessor}
}

func BindValue(p *Parameter, value any) ParameterBinding {
	return ParameterBinding{Parameter: p, Accessor: func() any { return value }}
}

type resolved struct {
	value any
	err   error
}

// ParameterContext 一次枚举中的参数取值，每个参数的取值函数最多调用一次
type ParameterContext struct {
	bindings map[*Parameter]func() any

	mu     sync.Mutex
	values map[*Parameter]resolved
}

func NewParameterContext(bindings ...ParameterBinding) *ParameterContext {
	c := &ParameterContext{
		bindings: make(map[*Parameter]func() any, len(bindings)),
		values:   map[*Parameter]resolved{},
	}
	for _, b := range bindings {
		if b.Parameter != nil && b.Accessor != nil {
			c.bindings[b.Parameter] = b.Accessor
		}
	}
	return c
}

// Value 返回参数值，整数统一为 int64，nil 表示 Null
func (c *ParameterContext) Value(p *Parameter) (any, error) {
	if c == nil {
		return nil, errors.Wrap(ErrParameterNotBound, p.String())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.values[p]; ok {
		return r.value, r.err
	}

	var r resolved
	accessor, ok := c.bindings[p]
	if !ok {
		r.err = errors.Wrap(ErrParameterNotBound, p.String())
	} else {
		r.value, r.err = normalize(p, accessor())
	}
	c.values[p] = r
	return r.value, r.err
}

func normalize(p *Parameter, value any) (any, error) {
	t, err := tuple.FromValues(p.descriptor, value)
	if err != nil {
		return nil, errors.Wrapf(ErrParameterType, "%s expects %s, got %T", p, p.FieldType(), value)
	}
	v, _, err := t.GetValue(0)
	return v, err
}

// Int64 取整数参数，Null 视为错误
func (c *ParameterContext) Int64(p *Parameter) (int64, error) {
	v, err := c.Value(p)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, errors.Wrapf(ErrParameterType, "%s expects int64, got %T", p, v)
	}
	return n, nil
}
