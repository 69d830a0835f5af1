package index

import (
	"testing"

	"github.com/hatlonely/rse/rangeset"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func keySet(c *KeyComparer, q RangeQuery) *rangeset.RangeSet[Entire] {
	return q.ToRangeSet(c)
}

func TestKeyComparerNearest(t *testing.T) {
	c := NewKeyComparer(keyDesc, nil)
	k := key("b", 1)

	assert.Equal(t, rangeset.Positive, c.Nearest(NewEntire(k), rangeset.Positive).Shift)
	assert.Equal(t, rangeset.Negative, c.Nearest(NewEntire(k), rangeset.Negative).Shift)
	assert.Equal(t, 0, c.Compare(c.Nearest(NewShiftedEntire(k, rangeset.Negative), rangeset.Positive), NewEntire(k)))
	assert.Equal(t, 0, c.Compare(c.Nearest(NewShiftedEntire(k, rangeset.Positive), rangeset.Negative), NewEntire(k)))
	assert.True(t, c.Nearest(PositiveInfinity(), rangeset.Negative).IsInfinity())
}

func TestKeyRangeSet(t *testing.T) {
	Convey("键区间集合的开闭端点", t, func() {
		c := NewKeyComparer(keyDesc, nil)
		k := NewEntire(key("b", 1))
		below := NewEntire(key("b", 0))
		above := NewEntire(key("b", 2))

		lt := keySet(c, RangeQuery{Lt: key("b", 1)})
		gt := keySet(c, RangeQuery{Gt: key("b", 1)})

		Convey("key < k 与 key > k 的并集不包含 k", func() {
			union := lt.Clone().Unite(gt)
			So(union.Len(), ShouldEqual, 2)
			So(union.Contains(k), ShouldBeFalse)
			So(union.Contains(below), ShouldBeTrue)
			So(union.Contains(above), ShouldBeTrue)

			rest := union.Clone().Invert()
			So(rest.Len(), ShouldEqual, 1)
			So(rest.Contains(k), ShouldBeTrue)
			So(rest.Contains(below), ShouldBeFalse)
			So(rest.Contains(above), ShouldBeFalse)
		})

		Convey("key <= k 与 key > k 相邻，合并为全集", func() {
			union := keySet(c, RangeQuery{Lte: key("b", 1)}).Unite(gt)
			So(union.Len(), ShouldEqual, 1)
			So(union.IsFull(), ShouldBeTrue)
			So(union.Clone().Invert().IsEmpty(), ShouldBeTrue)
		})

		Convey("取反包含开区间排除的端点，两次取反还原", func() {
			notGt := gt.Clone().Invert()
			So(notGt.Contains(k), ShouldBeTrue)
			So(notGt.Contains(below), ShouldBeTrue)
			So(notGt.Contains(above), ShouldBeFalse)

			twice := notGt.Clone().Invert()
			So(twice.Len(), ShouldEqual, 1)
			So(twice.Ranges()[0].Equal(gt.Ranges()[0], c), ShouldBeTrue)
		})

		Convey("与空集并、与全集交", func() {
			united := gt.Clone().Unite(rangeset.NewFullOrEmpty[Entire](false, c))
			So(united.Len(), ShouldEqual, 1)
			So(united.Ranges()[0].Equal(gt.Ranges()[0], c), ShouldBeTrue)

			intersected := rangeset.NewFullOrEmpty[Entire](true, c).Intersect(gt)
			So(intersected.Contains(k), ShouldBeFalse)
			So(intersected.Contains(above), ShouldBeTrue)
		})

		Convey("前缀区间的补集排除所有以前缀开头的键", func() {
			notB := rangeset.NewRangeSet(Point(key("b")), rangeset.AdvancedComparer[Entire](c)).Invert()
			So(notB.Len(), ShouldEqual, 2)
			So(notB.Contains(k), ShouldBeFalse)
			So(notB.Contains(NewEntire(key("b", 99))), ShouldBeFalse)
			So(notB.Contains(NewEntire(key("a", 99))), ShouldBeTrue)
			So(notB.Contains(NewEntire(key("c", 0))), ShouldBeTrue)
		})

		Convey("合并后区间两两不相交也不相邻", func() {
			set := keySet(c, RangeQuery{Gt: key("a"), Lt: key("b", 5)})
			set.Unite(keySet(c, RangeQuery{Gte: key("b", 5), Lte: key("b", 7)}))
			set.Unite(keySet(c, RangeQuery{Gt: key("c", 1), Lt: key("d")}))
			set.Unite(keySet(c, RangeQuery{Gt: key("b", 8), Lt: key("c", 1)}))
			ranges := set.Ranges()
			So(ranges, ShouldHaveLength, 3)
			for i := 0; i+1 < len(ranges); i++ {
				So(ranges[i].Intersects(ranges[i+1], c), ShouldBeFalse)
				So(ranges[i].Touches(ranges[i+1], c), ShouldBeFalse)
			}
			So(set.Contains(NewEntire(key("b", 7))), ShouldBeTrue)
			So(set.Contains(NewEntire(key("b", 8))), ShouldBeFalse)
			So(set.Contains(NewEntire(key("c", 1))), ShouldBeFalse)
		})
	})
}
