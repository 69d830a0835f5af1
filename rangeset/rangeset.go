package rangeset

import (
	"iter"
	"slices"
	"strings"
)

// RangeSet 两两不相交的正向区间集合，区间按左端点升序保存
type RangeSet[T any] struct {
	comparer AdvancedComparer[T]
	ranges   []Range[T]
}

// NewRangeSet 以单个区间初始化，Empty 区间得到空集合
func NewRangeSet[T any](r Range[T], comparer AdvancedComparer[T]) *RangeSet[T] {
	s := &RangeSet[T]{comparer: comparer}
	if !r.IsEmpty() {
		s.ranges = append(s.ranges, r.Redirect(Positive, comparer))
	}
	return s
}

func NewFullOrEmpty[T any](full bool, comparer AdvancedComparer[T]) *RangeSet[T] {
	if full {
		return NewRangeSet(FullRange[T](), comparer)
	}
	return NewRangeSet(EmptyRange[T](), comparer)
}

func (s *RangeSet[T]) Comparer() AdvancedComparer[T] {
	return s.comparer
}

func (s *RangeSet[T]) IsEmpty() bool {
	return len(s.ranges) == 0
}

func (s *RangeSet[T]) IsFull() bool {
	return len(s.ranges) == 1 && s.ranges[0].Equal(FullRange[T](), s.comparer)
}

func (s *RangeSet[T]) Contains(point T) bool {
	for _, r := range s.ranges {
		if r.Contains(point, s.comparer) {
			return true
		}
	}
	return false
}

// Unite 并入 other 的所有区间，返回自身
func (s *RangeSet[T]) Unite(other *RangeSet[T]) *RangeSet[T] {
	for _, r := range other.ranges {
		s.UniteRange(r)
	}
	return s
}

// UniteRange 并入单个区间
// 合并后的区间可能与此前不相交的区间重新相交或相邻，因此重复合并直到没有可吸收的区间
func (s *RangeSet[T]) UniteRange(r Range[T]) *RangeSet[T] {
	if r.IsEmpty() {
		return s
	}
	merged := r.Redirect(Positive, s.comparer)
	for absorbed := true; absorbed; {
		absorbed = false
		kept := make([]Range[T], 0, len(s.ranges))
		for _, existing := range s.ranges {
			if merged.Intersects(existing, s.comparer) || merged.Touches(existing, s.comparer) {
				merged = merged.Merge(existing, s.comparer)[0]
				absorbed = true
				continue
			}
			kept = append(kept, existing)
		}
		s.ranges = kept
	}
	s.ranges = append(s.ranges, merged)
	s.sort()
	return s
}

// Intersect 与 other 求交，返回自身
func (s *RangeSet[T]) Intersect(other *RangeSet[T]) *RangeSet[T] {
	var result []Range[T]
	for _, o := range other.ranges {
		for _, r := range s.ranges {
			if i := r.Intersect(o, s.comparer); !i.IsEmpty() {
				result = append(result, i)
			}
		}
	}
	s.ranges = result
	s.sort()
	return s
}

// Invert 取补集，返回自身
func (s *RangeSet[T]) Invert() *RangeSet[T] {
	c := s.comparer
	if len(s.ranges) == 0 {
		s.ranges = []Range[T]{FullRange[T]()}
		return s
	}

	current := s.ranges
	s.ranges = nil
	left := c.MinValue()
	for i, r := range current {
		lo, hi := r.bounds(c)
		if c.Compare(left, lo) < 0 {
			s.ranges = append(s.ranges, NewRange(left, c.Nearest(lo, Negative)))
		}
		if i < len(current)-1 {
			left = c.Nearest(hi, Positive)
		} else if c.Compare(hi, c.MaxValue()) < 0 {
			s.ranges = append(s.ranges, NewRange(c.Nearest(hi, Positive), c.MaxValue()))
		}
	}
	return s
}

// Ranges 按左端点升序返回区间副本
func (s *RangeSet[T]) Ranges() []Range[T] {
	return slices.Clone(s.ranges)
}

// All 按左端点升序遍历区间
func (s *RangeSet[T]) All() iter.Seq[Range[T]] {
	return func(yield func(Range[T]) bool) {
		for _, r := range s.ranges {
			if !yield(r) {
				return
			}
		}
	}
}

func (s *RangeSet[T]) Len() int {
	return len(s.ranges)
}

func (s *RangeSet[T]) Clone() *RangeSet[T] {
	return &RangeSet[T]{comparer: s.comparer, ranges: slices.Clone(s.ranges)}
}

func (s *RangeSet[T]) String() string {
	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *RangeSet[T]) sort() {
	slices.SortFunc(s.ranges, func(a, b Range[T]) int {
		alo, _ := a.bounds(s.comparer)
		blo, _ := b.bounds(s.comparer)
		return s.comparer.Compare(alo, blo)
	})
}
