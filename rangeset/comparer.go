package rangeset

import "cmp"

// Direction 区间或遍历方向
type Direction int8

const (
	None     Direction = 0
	Positive Direction = 1
	Negative Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	}
	return "None"
}

// Reverse 反向
func (d Direction) Reverse() Direction {
	return -d
}

// Comparer 全序比较器，调用方保证比较结果满足全序
type Comparer[T any] interface {
	Compare(x, y T) int
}

// AdvancedComparer 额外提供值域边界和相邻值，用于区间取反
type AdvancedComparer[T any] interface {
	Comparer[T]
	MinValue() T
	MaxValue() T
	// Nearest 返回 value 在 direction 方向上紧邻的值，到达边界时返回边界本身
	Nearest(value T, direction Direction) T
}

// ComparerFunc 把普通比较函数适配为 Comparer
type ComparerFunc[T any] func(x, y T) int

func (f ComparerFunc[T]) Compare(x, y T) int {
	return f(x, y)
}

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// IntegerComparer 整数类型的 AdvancedComparer
type IntegerComparer[T Integer] struct {
	min T
	max T
}

func NewIntegerComparer[T Integer]() *IntegerComparer[T] {
	var zero T
	one := T(1)

	// 逐位填充直到溢出，得到最大值
	hi := one
	for {
		next := hi<<1 | one
		if next <= hi {
			break
		}
		hi = next
	}
	lo := zero
	if zero-one < zero {
		lo = -hi - one
	}
	return &IntegerComparer[T]{min: lo, max: hi}
}

// Int64Comparer 最常用的整数比较器
func Int64Comparer() *IntegerComparer[int64] {
	return NewIntegerComparer[int64]()
}

func (c *IntegerComparer[T]) Compare(x, y T) int {
	return cmp.Compare(x, y)
}

func (c *IntegerComparer[T]) MinValue() T {
	return c.min
}

func (c *IntegerComparer[T]) MaxValue() T {
	return c.max
}

func (c *IntegerComparer[T]) Nearest(value T, direction Direction) T {
	switch direction {
	case Positive:
		if value < c.max {
			return value + 1
		}
	case Negative:
		if value > c.min {
			return value - 1
		}
	}
	return value
}
