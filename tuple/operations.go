package tuple

import (
	"github.com/pkg/errors"
)

// MergeBehavior 合并两个元组时的取值策略
type MergeBehavior uint8

const (
	// PreferDifference 另一个元组字段已加载时取另一个元组的值
	PreferDifference MergeBehavior = iota
	// PreferSource 保留原值，只填补原元组中 NotAvailable 的字段
	PreferSource
)

type fieldReader interface {
	fieldAt(i int) (any, FieldState)
}

func (t *RegularTuple) fieldAt(i int) (any, FieldState) {
	return t.values[i], t.states[i]
}

// readField 读取字段值和状态，不把 NotAvailable 当成错误
func readField(t Tuple, i int) (any, FieldState, error) {
	if r, ok := t.(fieldReader); ok && i >= 0 && i < t.Count() {
		v, s := r.fieldAt(i)
		return v, s, nil
	}
	v, s, err := t.GetValue(i)
	if err != nil && errors.Is(err, ErrFieldUnavailable) {
		return nil, NotAvailable, nil
	}
	return v, s, err
}

// CopyTo 按字段位置对齐复制值和状态，复制字段数为两者中较小的
func CopyTo(source, target Tuple) error {
	if IsReadOnly(target) {
		return ErrReadOnly
	}
	n := source.Count()
	if target.Count() < n {
		n = target.Count()
	}
	rt, regular := target.(*RegularTuple)
	for i := 0; i < n; i++ {
		v, s, err := readField(source, i)
		if err != nil {
			return err
		}
		if regular {
			if s == Available {
				if _, ok := normalize(rt.descriptor.types[i], v); !ok {
					return errors.Wrapf(ErrTypeMismatch, "field %d expects %s, got %T", i, rt.descriptor.types[i], v)
				}
			}
			rt.setRaw(i, v, s)
			continue
		}
		if s == NotAvailable {
			continue
		}
		if err := target.SetValue(i, v); err != nil {
			return err
		}
	}
	return nil
}

// MergeWith 按策略把 other 合并到 target 上
func MergeWith(target, other Tuple, behavior MergeBehavior) error {
	if IsReadOnly(target) {
		return ErrReadOnly
	}
	n := target.Count()
	if other.Count() < n {
		n = other.Count()
	}
	for i := 0; i < n; i++ {
		ov, os, err := readField(other, i)
		if err != nil {
			return err
		}
		if os == NotAvailable {
			continue
		}
		if behavior == PreferSource {
			ts, err := target.GetFieldState(i)
			if err != nil {
				return err
			}
			if ts != NotAvailable {
				continue
			}
		}
		if err := target.SetValue(i, ov); err != nil {
			return err
		}
	}
	return nil
}

// Clone 复制成一个可写的 RegularTuple
func Clone(t Tuple) *RegularTuple {
	result := New(t.Descriptor())
	for i := 0; i < t.Count(); i++ {
		v, s, _ := readField(t, i)
		result.setRaw(i, v, s)
	}
	return result
}

// ToFastReadOnly 将任意元组（包括变换视图）物化成只读副本
// 已经是只读 RegularTuple 时直接返回
func ToFastReadOnly(t Tuple) Tuple {
	if rt, ok := t.(*RegularTuple); ok && rt.readOnly {
		return rt
	}
	result := Clone(t)
	result.readOnly = true
	return result
}

// Values 返回全部字段值，NotAvailable 与 Null 字段均为 nil
func Values(t Tuple) []any {
	values := make([]any, t.Count())
	for i := range values {
		v, _, _ := readField(t, i)
		values[i] = v
	}
	return values
}

func stateRank(s FieldState) int {
	switch s {
	case NotAvailable:
		return 0
	case Null:
		return 1
	}
	return 2
}

// CompareFields 比较前 n 个字段，NotAvailable < Null < 任何值
func CompareFields(a, b Tuple, n int) int {
	for i := 0; i < n; i++ {
		if c := CompareField(a, b, i); c != 0 {
			return c
		}
	}
	return 0
}

// CompareField 比较两个元组的第 i 个字段
func CompareField(a, b Tuple, i int) int {
	av, as, _ := readField(a, i)
	bv, bs, _ := readField(b, i)
	if as != Available || bs != Available {
		return stateRank(as) - stateRank(bs)
	}
	t, err := a.Descriptor().FieldType(i)
	if err != nil {
		return 0
	}
	return CompareValues(t, av, bv)
}

// Compare 按字段逐个比较，字段数少的元组在公共前缀相同时较小
func Compare(a, b Tuple) int {
	n := a.Count()
	if b.Count() < n {
		n = b.Count()
	}
	if c := CompareFields(a, b, n); c != 0 {
		return c
	}
	return a.Count() - b.Count()
}

// Equal 两个元组形状相同且所有字段的状态和值都相同
func Equal(a, b Tuple) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.Descriptor().Equal(b.Descriptor()) {
		return false
	}
	return CompareFields(a, b, a.Count()) == 0
}
