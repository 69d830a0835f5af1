package tuple

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Descriptor 元组的形状描述：有序的字段类型列表
// Descriptor 创建后不可变，相同字段序列的 Descriptor 共享同一个实例
type Descriptor struct {
	types []FieldType
	key   string
}

var descriptors sync.Map

// NewDescriptor 创建（或复用）字段类型序列对应的 Descriptor
func NewDescriptor(types ...FieldType) (*Descriptor, error) {
	for i, t := range types {
		if !t.IsValid() {
			return nil, errors.Errorf("invalid field type at %d: %d", i, uint8(t))
		}
	}
	key := descriptorKey(types)
	if d, ok := descriptors.Load(key); ok {
		return d.(*Descriptor), nil
	}
	d := &Descriptor{
		types: append([]FieldType(nil), types...),
		key:   key,
	}
	actual, _ := descriptors.LoadOrStore(key, d)
	return actual.(*Descriptor), nil
}

// MustNewDescriptor 与 NewDescriptor 相同，类型非法时 panic
func MustNewDescriptor(types ...FieldType) *Descriptor {
	d, err := NewDescriptor(types...)
	if err != nil {
		panic(err)
	}
	return d
}

func descriptorKey(types []FieldType) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (d *Descriptor) Count() int {
	return len(d.types)
}

// FieldType 返回第 i 个字段的类型，越界返回 ErrIndexOutOfRange
func (d *Descriptor) FieldType(i int) (FieldType, error) {
	if i < 0 || i >= len(d.types) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "field %d of %d", i, len(d.types))
	}
	return d.types[i], nil
}

// Types 返回字段类型的副本
func (d *Descriptor) Types() []FieldType {
	return append([]FieldType(nil), d.types...)
}

// Equal 值相等比较
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return d.key == other.key
}

// Concat 拼接多个 Descriptor
func Concat(descs ...*Descriptor) *Descriptor {
	var types []FieldType
	for _, d := range descs {
		types = append(types, d.types...)
	}
	return MustNewDescriptor(types...)
}

// Segment 截取 [offset, offset+length) 范围的字段
func (d *Descriptor) Segment(offset, length int) (*Descriptor, error) {
	if offset < 0 || length < 0 || offset+length > len(d.types) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "segment [%d, %d) of %d", offset, offset+length, len(d.types))
	}
	return NewDescriptor(d.types[offset : offset+length]...)
}

func (d *Descriptor) String() string {
	return d.key
}
