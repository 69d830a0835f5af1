package codec

import (
	"testing"
	"time"

	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodeDecode(t *testing.T) {
	desc := tuple.MustNewDescriptor(
		tuple.TypeInt64, tuple.TypeFloat64, tuple.TypeDecimal, tuple.TypeString,
		tuple.TypeBool, tuple.TypeTime, tuple.TypeBytes,
	)
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	Convey("测试编解码", t, func() {
		Convey("所有字段类型与状态", func() {
			full := tuple.MustFromValues(desc, 7, 1.5, decimal.RequireFromString("12.34"), "abc", true, now, []byte("xyz"))
			partial := tuple.New(desc)
			So(partial.SetValue(0, 1), ShouldBeNil)
			So(partial.SetValue(3, nil), ShouldBeNil)

			data, err := Encode([]tuple.Tuple{full, partial})
			So(err, ShouldBeNil)

			rows, err := Decode(data)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Descriptor() == desc, ShouldBeTrue)
			So(tuple.Equal(rows[0], full), ShouldBeTrue)
			So(tuple.Equal(rows[1], partial), ShouldBeTrue)

			state, _ := rows[1].GetFieldState(3)
			So(state, ShouldEqual, tuple.Null)
			state, _ = rows[1].GetFieldState(4)
			So(state, ShouldEqual, tuple.NotAvailable)
		})

		Convey("空集合", func() {
			data, err := Encode(nil)
			So(err, ShouldBeNil)
			rows, err := Decode(data)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 0)
		})

		Convey("形状不一致", func() {
			other := tuple.MustFromValues(tuple.MustNewDescriptor(tuple.TypeInt64), 1)
			first := tuple.MustFromValues(desc, 7, 1.5, decimal.Zero, "abc", true, now, []byte("xyz"))
			_, err := Encode([]tuple.Tuple{first, other})
			So(err, ShouldNotBeNil)
		})

		Convey("损坏的数据", func() {
			_, err := Decode([]byte{0xc1})
			So(errors.Is(err, ErrCorrupted), ShouldBeTrue)
		})

		Convey("RowsSerializer", func() {
			s := NewRowsSerializer()
			row := tuple.MustFromValues(desc, 1, 2.0, decimal.NewFromInt(3), "d", false, now, []byte{1})
			data, err := s.Serialize([]tuple.Tuple{row})
			So(err, ShouldBeNil)
			rows, err := s.Deserialize(data)
			So(err, ShouldBeNil)
			So(tuple.Equal(rows[0], row), ShouldBeTrue)
		})
	})
}

func TestHash(t *testing.T) {
	desc := tuple.MustNewDescriptor(tuple.TypeInt64, tuple.TypeString)

	Convey("测试 Hash", t, func() {
		a := tuple.MustFromValues(desc, 1, "a")
		b := tuple.MustFromValues(desc, 1, "a")
		c := tuple.MustFromValues(desc, 1, "b")
		n := tuple.MustFromValues(desc, 1, nil)

		So(Hash(a), ShouldEqual, Hash(b))
		So(Hash(a), ShouldNotEqual, Hash(c))
		So(Hash(a), ShouldNotEqual, Hash(n))

		other := tuple.MustFromValues(tuple.MustNewDescriptor(tuple.TypeString, tuple.TypeInt64), "a", 1)
		So(Hash(a), ShouldNotEqual, Hash(other))
	})
}
