package ref

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

var ErrConstructorNotFound = errors.New("constructor not found")

// TypeOptions 通过 namespace 和 type 定位一个构造函数，Options 作为构造参数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

// Registry 构造函数注册表，key 为 namespace:type
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]*constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]*constructor{}}
}

func registryKey(namespace, type_ string) string {
	return namespace + ":" + type_
}

// Register 同一个 key 重复注册相同的函数是幂等的，注册不同的函数返回错误
func (r *Registry) Register(namespace string, type_ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s:%s failed", namespace, type_)
	}

	key := registryKey(namespace, type_)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.constructors[key]; ok {
		if existing.fn.Pointer() == c.fn.Pointer() {
			return nil
		}
		return errors.Errorf("constructor for %s already registered with different function", key)
	}
	r.constructors[key] = c
	return nil
}

func (r *Registry) New(namespace string, type_ string, options any) (any, error) {
	key := registryKey(namespace, type_)
	r.mu.RLock()
	c, ok := r.constructors[key]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrConstructorNotFound, key)
	}
	return c.new(options)
}

// typeName 以类型所在的包路径和类型名作为默认的 namespace 和 type
func typeName[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for type %s", t)
	}
	return t.PkgPath(), t.Name(), nil
}

var defaultRegistry = NewRegistry()

func Register(namespace string, type_ string, fn any) error {
	return defaultRegistry.Register(namespace, type_, fn)
}

func MustRegister(namespace string, type_ string, fn any) {
	if err := Register(namespace, type_, fn); err != nil {
		panic(err)
	}
}

func RegisterT[T any](fn any) error {
	namespace, type_, err := typeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, type_, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

func New(namespace string, type_ string, options any) (any, error) {
	return defaultRegistry.New(namespace, type_, options)
}

// NewT 按 T 的类型名查找构造函数，T 可以是接口，此时需要显式注册到接口所在的包
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, type_, err := typeName[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, type_, options)
	if err != nil {
		return zero, err
	}
	result, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("created object %T is not of type %T", obj, zero)
	}
	return result, nil
}

// NewWithTypeOptions 按 TypeOptions 创建对象并断言为 T，namespace 为空时使用 defaultNamespace
func NewWithTypeOptions[T any](options *TypeOptions, defaultNamespace string) (T, error) {
	var zero T
	if options == nil {
		return zero, errors.New("type options is nil")
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	obj, err := New(namespace, options.Type, options.Options)
	if err != nil {
		return zero, err
	}
	result, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("%s:%s created %T, which is not %T", namespace, options.Type, obj, zero)
	}
	return result, nil
}
