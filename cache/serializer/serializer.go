package serializer

import (
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

type Serializer[F, T any] interface {
	Serialize(from F) (T, error)
	Deserialize(to T) (F, error)
}

const namespace = "github.com/hatlonely/rse/cache/serializer"

// NewByteSerializerWithOptions options 为 nil 时使用 MsgPackSerializer
// 内置类型之外的序列化器从全局 ref 注册表中查找
func NewByteSerializerWithOptions[T any](options *ref.TypeOptions) (Serializer[T, []byte], error) {
	if options == nil {
		return NewMsgPackSerializerWithOptions[T](nil), nil
	}

	builtin := ref.NewRegistry()
	builtin.Register(namespace, "MsgPackSerializer", NewMsgPackSerializerWithOptions[T])

	ns := options.Namespace
	if ns == "" {
		ns = namespace
	}
	obj, err := builtin.New(ns, options.Type, options.Options)
	if errors.Is(err, ref.ErrConstructorNotFound) {
		obj, err = ref.New(ns, options.Type, options.Options)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "create serializer %s:%s failed", ns, options.Type)
	}
	s, ok := obj.(Serializer[T, []byte])
	if !ok {
		return nil, errors.Errorf("%T is not a Serializer", obj)
	}
	return s, nil
}
