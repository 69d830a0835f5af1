package rangeset

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func ints(s *RangeSet[int64]) [][2]int64 {
	var result [][2]int64
	for r := range s.All() {
		lo, hi := r.bounds(s.comparer)
		result = append(result, [2]int64{lo, hi})
	}
	return result
}

func assertDisjoint(t *testing.T, s *RangeSet[int64]) {
	t.Helper()
	ranges := s.Ranges()
	for i := range ranges {
		for j := range ranges {
			if i != j {
				assert.False(t, ranges[i].Intersects(ranges[j], s.comparer), "%v intersects %v", ranges[i], ranges[j])
			}
		}
		assert.NotEqual(t, Negative, ranges[i].Direction(s.comparer))
	}
}

func TestIntegerComparer(t *testing.T) {
	Convey("测试 IntegerComparer", t, func() {
		So(NewIntegerComparer[int8]().MinValue(), ShouldEqual, int8(math.MinInt8))
		So(NewIntegerComparer[int8]().MaxValue(), ShouldEqual, int8(math.MaxInt8))
		So(NewIntegerComparer[uint16]().MinValue(), ShouldEqual, uint16(0))
		So(NewIntegerComparer[uint16]().MaxValue(), ShouldEqual, uint16(math.MaxUint16))
		So(Int64Comparer().MaxValue(), ShouldEqual, int64(math.MaxInt64))
		So(Int64Comparer().MinValue(), ShouldEqual, int64(math.MinInt64))

		c := Int64Comparer()
		So(c.Nearest(5, Positive), ShouldEqual, int64(6))
		So(c.Nearest(5, Negative), ShouldEqual, int64(4))
		So(c.Nearest(math.MaxInt64, Positive), ShouldEqual, int64(math.MaxInt64))
		So(c.Nearest(math.MinInt64, Negative), ShouldEqual, int64(math.MinInt64))
	})
}

func TestRange(t *testing.T) {
	c := Int64Comparer()

	Convey("测试 Range", t, func() {
		Convey("方向", func() {
			So(NewRange[int64](1, 5).Direction(c), ShouldEqual, Positive)
			So(NewRange[int64](5, 1).Direction(c), ShouldEqual, Negative)
			So(NewRange[int64](3, 3).Direction(c), ShouldEqual, None)
			So(NewRange[int64](5, 1).Redirect(Positive, c).String(), ShouldEqual, "[1, 5]")
		})

		Convey("包含与相交", func() {
			r := NewRange[int64](5, 1)
			So(r.Contains(1, c), ShouldBeTrue)
			So(r.Contains(6, c), ShouldBeFalse)
			So(r.Intersects(NewRange[int64](5, 9), c), ShouldBeTrue)
			So(r.Intersects(NewRange[int64](6, 9), c), ShouldBeFalse)
			So(r.Touches(NewRange[int64](6, 9), c), ShouldBeTrue)
			So(r.Touches(NewRange[int64](7, 9), c), ShouldBeFalse)
			So(EmptyRange[int64]().Intersects(FullRange[int64](), c), ShouldBeFalse)
			So(FullRange[int64]().Contains(math.MinInt64, c), ShouldBeTrue)
		})

		Convey("交集", func() {
			So(NewRange[int64](1, 5).Intersect(NewRange[int64](3, 9), c).String(), ShouldEqual, "[3, 5]")
			So(NewRange[int64](1, 5).Intersect(NewRange[int64](6, 9), c).IsEmpty(), ShouldBeTrue)
			So(FullRange[int64]().Intersect(NewRange[int64](9, 3), c).String(), ShouldEqual, "[3, 9]")
		})

		Convey("合并", func() {
			So(NewRange[int64](1, 5).Merge(NewRange[int64](6, 9), c), ShouldHaveLength, 1)
			So(NewRange[int64](1, 5).Merge(NewRange[int64](6, 9), c)[0].String(), ShouldEqual, "[1, 9]")
			So(NewRange[int64](1, 5).Merge(NewRange[int64](7, 9), c), ShouldHaveLength, 2)
			So(NewRange[int64](1, 5).Merge(FullRange[int64](), c)[0].IsFull(), ShouldBeTrue)
		})

		Convey("相等", func() {
			So(FullRange[int64]().Equal(NewRange[int64](math.MinInt64, math.MaxInt64), c), ShouldBeTrue)
			So(NewRange[int64](1, 2).Equal(NewRange[int64](2, 1), c), ShouldBeTrue)
			So(EmptyRange[int64]().Equal(EmptyRange[int64](), c), ShouldBeTrue)
			So(EmptyRange[int64]().Equal(NewRange[int64](1, 1), c), ShouldBeFalse)
		})
	})
}

func TestRangeSet(t *testing.T) {
	c := Int64Comparer()

	Convey("测试 RangeSet", t, func() {
		Convey("构造", func() {
			So(NewFullOrEmpty[int64](true, c).IsFull(), ShouldBeTrue)
			So(NewFullOrEmpty[int64](false, c).IsEmpty(), ShouldBeTrue)
			So(NewRangeSet(NewRange[int64](9, 1), c).String(), ShouldEqual, "{[1, 9]}")
		})

		Convey("合并相交和相邻的区间", func() {
			s := NewRangeSet(NewRange[int64](1, 2), c)
			s.UniteRange(NewRange[int64](5, 6))
			So(ints(s), ShouldResemble, [][2]int64{{1, 2}, {5, 6}})
			s.UniteRange(NewRange[int64](3, 4))
			So(ints(s), ShouldResemble, [][2]int64{{1, 6}})
		})

		Convey("合并后的区间吸收多个区间", func() {
			s := NewRangeSet(NewRange[int64](1, 2), c)
			s.UniteRange(NewRange[int64](10, 12))
			s.UniteRange(NewRange[int64](20, 22))
			s.UniteRange(NewRange[int64](11, 19))
			So(ints(s), ShouldResemble, [][2]int64{{1, 2}, {10, 22}})
		})

		Convey("并入空集合不变", func() {
			s := NewRangeSet(NewRange[int64](1, 2), c)
			s.Unite(NewFullOrEmpty[int64](false, c))
			So(ints(s), ShouldResemble, [][2]int64{{1, 2}})
			s.UniteRange(EmptyRange[int64]())
			So(ints(s), ShouldResemble, [][2]int64{{1, 2}})
		})

		Convey("全集求交", func() {
			r := NewRangeSet(NewRange[int64](3, 7), c)
			full := NewFullOrEmpty[int64](true, c)
			So(ints(full.Intersect(r)), ShouldResemble, [][2]int64{{3, 7}})
		})

		Convey("求交", func() {
			s := NewRangeSet(NewRange[int64](1, 10), c)
			o := NewRangeSet(NewRange[int64](0, 2), c).UniteRange(NewRange[int64](5, 6)).UniteRange(NewRange[int64](9, 20))
			So(ints(s.Intersect(o)), ShouldResemble, [][2]int64{{1, 2}, {5, 6}, {9, 10}})
		})

		Convey("取反", func() {
			s := NewRangeSet(NewRange[int64](1, 2), c).UniteRange(NewRange[int64](5, 6))
			So(ints(s.Clone().Invert()), ShouldResemble, [][2]int64{
				{math.MinInt64, 0}, {3, 4}, {7, math.MaxInt64},
			})
			So(NewFullOrEmpty[int64](false, c).Invert().IsFull(), ShouldBeTrue)
			So(NewFullOrEmpty[int64](true, c).Invert().IsEmpty(), ShouldBeTrue)

			edge := NewRangeSet(NewRange[int64](math.MinInt64, 0), c)
			So(ints(edge.Invert()), ShouldResemble, [][2]int64{{1, math.MaxInt64}})
		})

		Convey("包含", func() {
			s := NewRangeSet(NewRange[int64](1, 2), c).UniteRange(NewRange[int64](5, 6))
			So(s.Contains(2), ShouldBeTrue)
			So(s.Contains(3), ShouldBeFalse)
			So(s.Len(), ShouldEqual, 2)
		})
	})
}

func TestRangeSetProperties(t *testing.T) {
	c := Int64Comparer()
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		s := NewFullOrEmpty[int64](false, c)
		for i := 0; i < 1+rnd.Intn(6); i++ {
			a, b := int64(rnd.Intn(100)), int64(rnd.Intn(100))
			s.UniteRange(NewRange(a, b))
		}
		assertDisjoint(t, s)

		inverted := s.Clone().Invert()
		assertDisjoint(t, inverted)
		restored := inverted.Clone().Invert()
		assertDisjoint(t, restored)

		for p := int64(-5); p < 105; p++ {
			assert.Equal(t, s.Contains(p), restored.Contains(p), "point %d in %v / %v", p, s, restored)
			assert.NotEqual(t, s.Contains(p), inverted.Contains(p), "point %d in %v / %v", p, s, inverted)
		}
	}
}
