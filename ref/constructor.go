package ref

import (
	"reflect"

	"github.com/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Convertable 可以把自身转换为任意选项结构的配置数据，通常是 cfg 中的一段配置
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	optionsType  reflect.Type
	returnsError bool
}

// newConstructor 构造函数的形式为 func() T、func(O) T、func() (T, error) 或 func(O) (T, error)
func newConstructor(fn any) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}
	t := v.Type()
	if t.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have at most 1 parameter, got %d", t.NumIn())
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, errors.Errorf("constructor must return 1 or 2 values, got %d", t.NumOut())
	}
	if t.NumOut() == 2 && !t.Out(1).Implements(errorType) {
		return nil, errors.Errorf("second return value of constructor must be error, got %s", t.Out(1))
	}

	c := &constructor{fn: v, returnsError: t.NumOut() == 2}
	if t.NumIn() == 1 {
		c.optionsType = t.In(0)
	}
	return c, nil
}

func (c *constructor) new(options any) (any, error) {
	var args []reflect.Value
	if c.optionsType != nil {
		arg, err := c.convert(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	results := c.fn.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// convert 把 options 转换为构造函数的参数类型
// nil 转换为零值，Convertable 通过 ConvertTo 填充一个新的参数对象
func (c *constructor) convert(options any) (reflect.Value, error) {
	if options == nil {
		return reflect.Zero(c.optionsType), nil
	}
	if convertable, ok := options.(Convertable); ok {
		if c.optionsType.Kind() == reflect.Ptr {
			target := reflect.New(c.optionsType.Elem())
			if err := convertable.ConvertTo(target.Interface()); err != nil {
				return reflect.Value{}, errors.WithMessagef(err, "convert options to %s failed", c.optionsType)
			}
			return target, nil
		}
		target := reflect.New(c.optionsType)
		if err := convertable.ConvertTo(target.Interface()); err != nil {
			return reflect.Value{}, errors.WithMessagef(err, "convert options to %s failed", c.optionsType)
		}
		return target.Elem(), nil
	}

	v := reflect.ValueOf(options)
	if !v.Type().AssignableTo(c.optionsType) {
		return reflect.Value{}, errors.Errorf("options type %T is not assignable to %s", options, c.optionsType)
	}
	return v, nil
}
