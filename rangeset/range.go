package rangeset

import "fmt"

type rangeKind uint8

const (
	boundedRange rangeKind = iota
	emptyRange
	fullRange
)

// Range 两端都包含的闭区间，Empty 和 Full 是两个特殊值
// 有界区间的方向由两个端点的先后决定
type Range[T any] struct {
	kind   rangeKind
	first  T
	second T
}

func EmptyRange[T any]() Range[T] {
	return Range[T]{kind: emptyRange}
}

func FullRange[T any]() Range[T] {
	return Range[T]{kind: fullRange}
}

func NewRange[T any](first, second T) Range[T] {
	return Range[T]{first: first, second: second}
}

func (r Range[T]) IsEmpty() bool { return r.kind == emptyRange }
func (r Range[T]) IsFull() bool  { return r.kind == fullRange }

// EndPoints 按构造顺序返回两个端点，Full 返回值域边界
func (r Range[T]) EndPoints(c AdvancedComparer[T]) (T, T) {
	if r.kind == fullRange {
		return c.MinValue(), c.MaxValue()
	}
	return r.first, r.second
}

// bounds 正向的左右端点
func (r Range[T]) bounds(c AdvancedComparer[T]) (T, T) {
	first, second := r.EndPoints(c)
	if c.Compare(first, second) > 0 {
		return second, first
	}
	return first, second
}

func (r Range[T]) Direction(c Comparer[T]) Direction {
	switch r.kind {
	case emptyRange:
		return None
	case fullRange:
		return Positive
	}
	switch v := c.Compare(r.first, r.second); {
	case v < 0:
		return Positive
	case v > 0:
		return Negative
	}
	return None
}

// Redirect 调整为指定方向，单点区间和特殊区间保持不变
func (r Range[T]) Redirect(direction Direction, c Comparer[T]) Range[T] {
	if r.kind != boundedRange || direction == None {
		return r
	}
	current := r.Direction(c)
	if current == None || current == direction {
		return r
	}
	return Range[T]{first: r.second, second: r.first}
}

func (r Range[T]) Contains(point T, c AdvancedComparer[T]) bool {
	switch r.kind {
	case emptyRange:
		return false
	case fullRange:
		return true
	}
	lo, hi := r.bounds(c)
	return c.Compare(lo, point) <= 0 && c.Compare(point, hi) <= 0
}

func (r Range[T]) Intersects(other Range[T], c AdvancedComparer[T]) bool {
	if r.kind == emptyRange || other.kind == emptyRange {
		return false
	}
	if r.kind == fullRange || other.kind == fullRange {
		return true
	}
	alo, ahi := r.bounds(c)
	blo, bhi := other.bounds(c)
	return c.Compare(alo, bhi) <= 0 && c.Compare(blo, ahi) <= 0
}

// Touches 两个区间不相交但首尾相邻
func (r Range[T]) Touches(other Range[T], c AdvancedComparer[T]) bool {
	if r.kind != boundedRange || other.kind != boundedRange || r.Intersects(other, c) {
		return false
	}
	alo, ahi := r.bounds(c)
	blo, bhi := other.bounds(c)
	if c.Compare(ahi, blo) < 0 {
		return c.Compare(c.Nearest(ahi, Positive), blo) == 0
	}
	return c.Compare(c.Nearest(bhi, Positive), alo) == 0
}

// Intersect 交集，不相交时返回 Empty，结果为正向
func (r Range[T]) Intersect(other Range[T], c AdvancedComparer[T]) Range[T] {
	if !r.Intersects(other, c) {
		return EmptyRange[T]()
	}
	if r.kind == fullRange {
		return other.Redirect(Positive, c)
	}
	if other.kind == fullRange {
		return r.Redirect(Positive, c)
	}
	alo, ahi := r.bounds(c)
	blo, bhi := other.bounds(c)
	lo, hi := alo, ahi
	if c.Compare(blo, lo) > 0 {
		lo = blo
	}
	if c.Compare(bhi, hi) < 0 {
		hi = bhi
	}
	return NewRange(lo, hi)
}

// Merge 相交或相邻时合并为一个正向区间，否则原样返回两个区间
func (r Range[T]) Merge(other Range[T], c AdvancedComparer[T]) []Range[T] {
	switch {
	case r.kind == emptyRange:
		return []Range[T]{other}
	case other.kind == emptyRange:
		return []Range[T]{r}
	case r.kind == fullRange || other.kind == fullRange:
		return []Range[T]{FullRange[T]()}
	}
	if !r.Intersects(other, c) && !r.Touches(other, c) {
		return []Range[T]{r, other}
	}
	alo, ahi := r.bounds(c)
	blo, bhi := other.bounds(c)
	lo, hi := alo, ahi
	if c.Compare(blo, lo) < 0 {
		lo = blo
	}
	if c.Compare(bhi, hi) > 0 {
		hi = bhi
	}
	return []Range[T]{NewRange(lo, hi)}
}

// Equal 覆盖的点集相同，Full 与 [MinValue, MaxValue] 相等
func (r Range[T]) Equal(other Range[T], c AdvancedComparer[T]) bool {
	if r.kind == emptyRange || other.kind == emptyRange {
		return r.kind == other.kind
	}
	alo, ahi := r.bounds(c)
	blo, bhi := other.bounds(c)
	return c.Compare(alo, blo) == 0 && c.Compare(ahi, bhi) == 0
}

func (r Range[T]) String() string {
	switch r.kind {
	case emptyRange:
		return "Empty"
	case fullRange:
		return "Full"
	}
	return fmt.Sprintf("[%v, %v]", r.first, r.second)
}
