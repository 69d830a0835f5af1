package index

import (
	"cmp"
	"fmt"

	"github.com/hatlonely/rse/rangeset"
	"github.com/hatlonely/rse/tuple"
)

// Entire 索引键空间中的一个端点：键（或键前缀）加一个无穷小偏移，或者正负无穷
// 前缀键与所有以它为前缀的键相等，偏移用于表达开区间
type Entire struct {
	Value    tuple.Tuple
	Infinity rangeset.Direction
	Shift    rangeset.Direction
}

func NewEntire(key tuple.Tuple) Entire {
	return Entire{Value: key}
}

// NewShiftedEntire 紧挨着 key 的端点，Positive 在所有以 key 为前缀的键之后，Negative 在之前
func NewShiftedEntire(key tuple.Tuple, shift rangeset.Direction) Entire {
	return Entire{Value: key, Shift: shift}
}

func NegativeInfinity() Entire {
	return Entire{Infinity: rangeset.Negative}
}

func PositiveInfinity() Entire {
	return Entire{Infinity: rangeset.Positive}
}

func (e Entire) IsInfinity() bool {
	return e.Infinity != rangeset.None
}

func (e Entire) String() string {
	switch e.Infinity {
	case rangeset.Negative:
		return "-inf"
	case rangeset.Positive:
		return "+inf"
	}
	s := tuple.Format(e.Value)
	switch e.Shift {
	case rangeset.Negative:
		return s + "-0"
	case rangeset.Positive:
		return s + "+0"
	}
	return s
}

// KeyComparer 按索引键列方向比较 Entire
type KeyComparer struct {
	descriptor *tuple.Descriptor
	directions []rangeset.Direction
}

func NewKeyComparer(keyDescriptor *tuple.Descriptor, directions []rangeset.Direction) *KeyComparer {
	d := make([]rangeset.Direction, keyDescriptor.Count())
	for i := range d {
		d[i] = rangeset.Positive
		if i < len(directions) && directions[i] == rangeset.Negative {
			d[i] = rangeset.Negative
		}
	}
	return &KeyComparer{descriptor: keyDescriptor, directions: d}
}

func (c *KeyComparer) KeyDescriptor() *tuple.Descriptor {
	return c.descriptor
}

func (c *KeyComparer) Directions() []rangeset.Direction {
	return append([]rangeset.Direction(nil), c.directions...)
}

func (c *KeyComparer) Compare(x, y Entire) int {
	if x.Infinity != rangeset.None || y.Infinity != rangeset.None {
		return cmp.Compare(x.Infinity, y.Infinity)
	}
	n := min(x.Value.Count(), y.Value.Count(), len(c.directions))
	for i := 0; i < n; i++ {
		if v := tuple.CompareField(x.Value, y.Value, i); v != 0 {
			return v * int(c.directions[i])
		}
	}
	return cmp.Compare(x.Shift, y.Shift)
}

func (c *KeyComparer) MinValue() Entire {
	return NegativeInfinity()
}

func (c *KeyComparer) MaxValue() Entire {
	return PositiveInfinity()
}

// Nearest 未偏移的键向两侧紧邻的是偏移端点，偏移端点反方向紧邻的是键本身
func (c *KeyComparer) Nearest(value Entire, direction rangeset.Direction) Entire {
	if value.IsInfinity() || direction == rangeset.None {
		return value
	}
	switch value.Shift {
	case rangeset.None:
		return Entire{Value: value.Value, Shift: direction}
	case direction.Reverse():
		return Entire{Value: value.Value}
	}
	return value
}

// Point 以 key 为单点的区间
func Point(key tuple.Tuple) rangeset.Range[Entire] {
	return rangeset.NewRange(NewEntire(key), NewEntire(key))
}

// Ray 从 Point 出发沿 Direction 查找
type Ray struct {
	Point     Entire
	Direction rangeset.Direction
}

func NewRay(key tuple.Tuple) Ray {
	return Ray{Point: NewEntire(key), Direction: rangeset.Positive}
}

func (r Ray) String() string {
	return fmt.Sprintf("%s %s", r.Point, r.Direction)
}
