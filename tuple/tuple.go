package tuple

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrIndexOutOfRange  = errors.New("field index out of range")
	ErrFieldUnavailable = errors.New("field value is not available")
	ErrReadOnly         = errors.New("object is read-only")
	ErrTypeMismatch     = errors.New("field type mismatch")
)

// FieldState 字段状态
type FieldState uint8

const (
	// NotAvailable 字段值尚未加载，读取时需要调用方自行获取
	NotAvailable FieldState = iota
	// Available 字段有值
	Available
	// Null 字段已加载，值为空
	Null
)

func (s FieldState) String() string {
	switch s {
	case NotAvailable:
		return "NotAvailable"
	case Available:
		return "Available"
	case Null:
		return "Null"
	}
	return fmt.Sprintf("FieldState(%d)", uint8(s))
}

// HasValue Available 和 Null 都视为已加载
func (s FieldState) HasValue() bool {
	return s == Available || s == Null
}

// Tuple 定长、带类型、可空的值向量，是查询管道中数据流动的基本单位
type Tuple interface {
	Descriptor() *Descriptor
	Count() int

	// GetFieldState 返回字段状态
	GetFieldState(i int) (FieldState, error)
	// GetValue 返回字段值和状态，Null 字段返回 nil 值，NotAvailable 字段返回 ErrFieldUnavailable
	GetValue(i int) (any, FieldState, error)
	// SetValue 设置字段值，nil 表示 Null；只读元组返回 ErrReadOnly
	SetValue(i int, value any) error
}

// ReadOnly 只读元组的标记接口
type ReadOnly interface {
	IsReadOnly() bool
}

// IsReadOnly 判断元组是否只读
func IsReadOnly(t Tuple) bool {
	if r, ok := t.(ReadOnly); ok {
		return r.IsReadOnly()
	}
	return false
}

// RegularTuple 自己持有数据的元组
type RegularTuple struct {
	descriptor *Descriptor
	values     []any
	states     []FieldState
	readOnly   bool
}

// New 创建所有字段都处于 NotAvailable 状态的元组
func New(descriptor *Descriptor) *RegularTuple {
	return &RegularTuple{
		descriptor: descriptor,
		values:     make([]any, descriptor.Count()),
		states:     make([]FieldState, descriptor.Count()),
	}
}

// FromValues 按顺序填充所有字段，nil 表示 Null
func FromValues(descriptor *Descriptor, values ...any) (*RegularTuple, error) {
	if len(values) != descriptor.Count() {
		return nil, errors.Errorf("descriptor %s expects %d values, got %d", descriptor, descriptor.Count(), len(values))
	}
	t := New(descriptor)
	for i, v := range values {
		if err := t.SetValue(i, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustFromValues 与 FromValues 相同，出错时 panic，便于构造常量数据
func MustFromValues(descriptor *Descriptor, values ...any) *RegularTuple {
	t, err := FromValues(descriptor, values...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RegularTuple) Descriptor() *Descriptor {
	return t.descriptor
}

func (t *RegularTuple) Count() int {
	return len(t.values)
}

func (t *RegularTuple) IsReadOnly() bool {
	return t.readOnly
}

func (t *RegularTuple) checkIndex(i int) error {
	if i < 0 || i >= len(t.values) {
		return errors.Wrapf(ErrIndexOutOfRange, "field %d of %d", i, len(t.values))
	}
	return nil
}

func (t *RegularTuple) GetFieldState(i int) (FieldState, error) {
	if err := t.checkIndex(i); err != nil {
		return NotAvailable, err
	}
	return t.states[i], nil
}

func (t *RegularTuple) GetValue(i int) (any, FieldState, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, NotAvailable, err
	}
	switch t.states[i] {
	case NotAvailable:
		return nil, NotAvailable, errors.Wrapf(ErrFieldUnavailable, "field %d", i)
	case Null:
		return nil, Null, nil
	}
	return t.values[i], Available, nil
}

func (t *RegularTuple) SetValue(i int, value any) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := t.checkIndex(i); err != nil {
		return err
	}
	if value == nil {
		t.values[i] = nil
		t.states[i] = Null
		return nil
	}
	fieldType := t.descriptor.types[i]
	normalized, ok := normalize(fieldType, value)
	if !ok {
		return errors.Wrapf(ErrTypeMismatch, "field %d expects %s, got %T", i, fieldType, value)
	}
	t.values[i] = normalized
	t.states[i] = Available
	return nil
}

// setRaw 复制时使用，跳过只读和类型检查
func (t *RegularTuple) setRaw(i int, value any, state FieldState) {
	t.values[i] = value
	t.states[i] = state
}

func (t *RegularTuple) String() string {
	return Format(t)
}

// Format 将任意元组格式化为 (v1, v2, ...) 形式，便于日志和调试
func Format(t Tuple) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < t.Count(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, state, _ := t.GetValue(i)
		switch state {
		case NotAvailable:
			sb.WriteString("<n/a>")
		case Null:
			sb.WriteString("<null>")
		default:
			fmt.Fprintf(&sb, "%v", v)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
