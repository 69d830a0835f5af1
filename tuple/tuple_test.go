package tuple

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDescriptor(t *testing.T) {
	Convey("测试 Descriptor", t, func() {
		Convey("相同字段序列共享同一实例", func() {
			d1 := MustNewDescriptor(TypeInt64, TypeString)
			d2 := MustNewDescriptor(TypeInt64, TypeString)
			So(d1 == d2, ShouldBeTrue)
			So(d1.Equal(d2), ShouldBeTrue)
			So(d1.String(), ShouldEqual, "(int64, string)")
		})

		Convey("不同字段序列不相等", func() {
			d1 := MustNewDescriptor(TypeInt64, TypeString)
			d2 := MustNewDescriptor(TypeString, TypeInt64)
			So(d1.Equal(d2), ShouldBeFalse)
		})

		Convey("非法类型", func() {
			_, err := NewDescriptor(FieldType(100))
			So(err, ShouldNotBeNil)
		})

		Convey("越界访问", func() {
			d := MustNewDescriptor(TypeInt64)
			_, err := d.FieldType(1)
			So(errors.Is(err, ErrIndexOutOfRange), ShouldBeTrue)
		})

		Convey("截取与拼接", func() {
			d := MustNewDescriptor(TypeInt64, TypeString, TypeBool)
			seg, err := d.Segment(1, 2)
			So(err, ShouldBeNil)
			So(seg.Equal(MustNewDescriptor(TypeString, TypeBool)), ShouldBeTrue)
			So(Concat(seg, d).Count(), ShouldEqual, 5)
		})
	})
}

func TestParseFieldType(t *testing.T) {
	Convey("测试 ParseFieldType", t, func() {
		for text, want := range map[string]FieldType{
			"int64":   TypeInt64,
			"INT":     TypeInt64,
			"double":  TypeFloat64,
			"decimal": TypeDecimal,
			"string":  TypeString,
			"bool":    TypeBool,
			"time":    TypeTime,
			"bytes":   TypeBytes,
		} {
			got, err := ParseFieldType(text)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		_, err := ParseFieldType("uuid")
		So(err, ShouldNotBeNil)

		var ft FieldType
		So(ft.UnmarshalText([]byte("string")), ShouldBeNil)
		So(ft, ShouldEqual, TypeString)
	})
}

func TestRegularTuple(t *testing.T) {
	desc := MustNewDescriptor(TypeInt64, TypeString, TypeDecimal)

	Convey("测试 RegularTuple", t, func() {
		Convey("新建元组字段均为 NotAvailable", func() {
			tp := New(desc)
			So(tp.Count(), ShouldEqual, 3)
			state, err := tp.GetFieldState(0)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, NotAvailable)
			_, _, err = tp.GetValue(0)
			So(errors.Is(err, ErrFieldUnavailable), ShouldBeTrue)
		})

		Convey("设置与读取", func() {
			tp := New(desc)
			So(tp.SetValue(0, 42), ShouldBeNil)
			So(tp.SetValue(1, nil), ShouldBeNil)
			So(tp.SetValue(2, decimal.NewFromInt(7)), ShouldBeNil)

			v, state, err := tp.GetValue(0)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, Available)
			So(v, ShouldEqual, int64(42))

			v, state, err = tp.GetValue(1)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, Null)
			So(v, ShouldBeNil)
		})

		Convey("类型不匹配", func() {
			tp := New(desc)
			err := tp.SetValue(1, 10)
			So(errors.Is(err, ErrTypeMismatch), ShouldBeTrue)
		})

		Convey("越界", func() {
			tp := New(desc)
			So(errors.Is(tp.SetValue(3, 1), ErrIndexOutOfRange), ShouldBeTrue)
			_, _, err := tp.GetValue(-1)
			So(errors.Is(err, ErrIndexOutOfRange), ShouldBeTrue)
		})

		Convey("FromValues 数量不匹配", func() {
			_, err := FromValues(desc, 1, "a")
			So(err, ShouldNotBeNil)
		})

		Convey("只读副本", func() {
			tp := MustFromValues(desc, 1, "a", decimal.NewFromInt(1))
			ro := ToFastReadOnly(tp)
			So(IsReadOnly(ro), ShouldBeTrue)
			So(errors.Is(ro.SetValue(0, 2), ErrReadOnly), ShouldBeTrue)
			So(ToFastReadOnly(ro) == ro, ShouldBeTrue)

			// 副本与原元组解耦
			So(tp.SetValue(0, 5), ShouldBeNil)
			v, _, _ := ro.GetValue(0)
			So(v, ShouldEqual, int64(1))
		})

		Convey("Format", func() {
			tp := New(desc)
			So(tp.SetValue(0, 1), ShouldBeNil)
			So(tp.SetValue(1, nil), ShouldBeNil)
			So(tp.String(), ShouldEqual, "(1, <null>, <n/a>)")
		})
	})
}

func TestCopyAndMerge(t *testing.T) {
	desc := MustNewDescriptor(TypeInt64, TypeString, TypeBool)

	Convey("测试 CopyTo 与 MergeWith", t, func() {
		Convey("CopyTo 复制值与状态", func() {
			src := New(desc)
			So(src.SetValue(0, 1), ShouldBeNil)
			So(src.SetValue(1, nil), ShouldBeNil)
			dst := MustFromValues(desc, 9, "x", true)
			So(CopyTo(src, dst), ShouldBeNil)

			s, _ := dst.GetFieldState(2)
			So(s, ShouldEqual, NotAvailable)
			s, _ = dst.GetFieldState(1)
			So(s, ShouldEqual, Null)
			v, _, _ := dst.GetValue(0)
			So(v, ShouldEqual, int64(1))
		})

		Convey("CopyTo 只读目标", func() {
			src := MustFromValues(desc, 1, "a", true)
			dst := ToFastReadOnly(MustFromValues(desc, 2, "b", false))
			So(errors.Is(CopyTo(src, dst), ErrReadOnly), ShouldBeTrue)
		})

		Convey("PreferDifference 取另一个元组已加载的字段", func() {
			dst := MustFromValues(desc, 1, "old", true)
			other := New(desc)
			So(other.SetValue(1, "new"), ShouldBeNil)
			So(other.SetValue(2, nil), ShouldBeNil)
			So(MergeWith(dst, other, PreferDifference), ShouldBeNil)
			So(Values(dst), ShouldResemble, []any{int64(1), "new", nil})
		})

		Convey("PreferSource 只填补缺失字段", func() {
			dst := New(desc)
			So(dst.SetValue(0, 1), ShouldBeNil)
			other := MustFromValues(desc, 2, "b", false)
			So(MergeWith(dst, other, PreferSource), ShouldBeNil)
			So(Values(dst), ShouldResemble, []any{int64(1), "b", false})
		})
	})
}

func TestCompare(t *testing.T) {
	desc := MustNewDescriptor(TypeInt64, TypeString, TypeTime)
	now := time.Now()

	Convey("测试比较", t, func() {
		a := MustFromValues(desc, 1, "a", now)
		b := MustFromValues(desc, 1, "b", now)
		n := MustFromValues(desc, 1, nil, now)

		So(Compare(a, b), ShouldBeLessThan, 0)
		So(Compare(b, a), ShouldBeGreaterThan, 0)
		So(Compare(a, Clone(a)), ShouldEqual, 0)
		So(Compare(n, a), ShouldBeLessThan, 0)
		So(CompareFields(a, b, 1), ShouldEqual, 0)
		So(Equal(a, Clone(a)), ShouldBeTrue)
		So(Equal(a, b), ShouldBeFalse)
		So(Equal(nil, nil), ShouldBeTrue)
		So(Equal(a, nil), ShouldBeFalse)
	})
}
