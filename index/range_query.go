package index

import (
	"strings"

	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
)

// RangeQuery 用比较条件描述的键区间，值为键或键前缀，未设置的一侧为无穷
// 同一侧同时设置时严格条件优先
type RangeQuery struct {
	Gt  tuple.Tuple
	Gte tuple.Tuple
	Lt  tuple.Tuple
	Lte tuple.Tuple
}

func (q *RangeQuery) lower() Entire {
	switch {
	case q.Gt != nil:
		return NewShiftedEntire(q.Gt, rangeset.Positive)
	case q.Gte != nil:
		return NewEntire(q.Gte)
	}
	return NegativeInfinity()
}

func (q *RangeQuery) upper() Entire {
	switch {
	case q.Lt != nil:
		return NewShiftedEntire(q.Lt, rangeset.Negative)
	case q.Lte != nil:
		return NewEntire(q.Lte)
	}
	return PositiveInfinity()
}

// ToRange 转换为 Entire 区间，下界大于上界时返回 Empty
func (q *RangeQuery) ToRange(comparer *KeyComparer) rangeset.Range[Entire] {
	lo, hi := q.lower(), q.upper()
	if lo.Infinity == rangeset.Negative && hi.Infinity == rangeset.Positive {
		return rangeset.FullRange[Entire]()
	}
	if comparer.Compare(lo, hi) > 0 {
		return rangeset.EmptyRange[Entire]()
	}
	return rangeset.NewRange(lo, hi)
}

func (q *RangeQuery) ToRangeSet(comparer *KeyComparer) *rangeset.RangeSet[Entire] {
	return rangeset.NewRangeSet(q.ToRange(comparer), rangeset.AdvancedComparer[Entire](comparer))
}

func (q *RangeQuery) String() string {
	var conditions []string
	if q.Gt != nil {
		conditions = append(conditions, "key > "+tuple.Format(q.Gt))
	}
	if q.Gte != nil {
		conditions = append(conditions, "key >= "+tuple.Format(q.Gte))
	}
	if q.Lt != nil {
		conditions = append(conditions, "key < "+tuple.Format(q.Lt))
	}
	if q.Lte != nil {
		conditions = append(conditions, "key <= "+tuple.Format(q.Lte))
	}
	if len(conditions) == 0 {
		return "true"
	}
	return strings.Join(conditions, " AND ")
}
