package serializer

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type MsgPackSerializerOptions struct {
	// UnsortedMapKeys map 按遍历顺序编码，默认按键排序，同一个值总是得到相同的字节
	UnsortedMapKeys bool `cfg:"unsortedMapKeys"`
	// StructTag 结构体字段名取自该标签，为空时使用 msgpack 标签
	StructTag string `cfg:"structTag"`
}

// MsgPackSerializer 默认的字节序列化器
type MsgPackSerializer[T any] struct {
	sortMapKeys bool
	structTag   string
}

func NewMsgPackSerializerWithOptions[T any](options *MsgPackSerializerOptions) *MsgPackSerializer[T] {
	if options == nil {
		options = &MsgPackSerializerOptions{}
	}
	return &MsgPackSerializer[T]{sortMapKeys: !options.UnsortedMapKeys, structTag: options.StructTag}
}

func (s *MsgPackSerializer[T]) Serialize(from T) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(s.sortMapKeys)
	if s.structTag != "" {
		enc.SetCustomStructTag(s.structTag)
	}
	if err := enc.Encode(from); err != nil {
		return nil, errors.Wrapf(err, "msgpack encode %T failed", from)
	}
	return buf.Bytes(), nil
}

func (s *MsgPackSerializer[T]) Deserialize(to []byte) (T, error) {
	var result T
	dec := msgpack.NewDecoder(bytes.NewReader(to))
	if s.structTag != "" {
		dec.SetCustomStructTag(s.structTag)
	}
	if err := dec.Decode(&result); err != nil {
		return result, errors.Wrapf(err, "msgpack decode %T failed", result)
	}
	return result, nil
}
