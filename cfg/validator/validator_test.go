package validator

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type indexOptions struct {
	Degree     int     `validate:"min=2"`
	FillFactor float64 `validate:"gte=0,lte=1"`
}

type storageOptions struct {
	Name  string       `validate:"required"`
	Index indexOptions `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	Convey("测试 ValidateStruct", t, func() {
		Convey("合法配置", func() {
			options := &storageOptions{Name: "memory", Index: indexOptions{Degree: 32, FillFactor: 0.5}}
			So(ValidateStruct(options), ShouldBeNil)
			So(ValidateStruct(*options), ShouldBeNil)
		})

		Convey("必填字段为空", func() {
			options := &storageOptions{Index: indexOptions{Degree: 32}}
			So(ValidateStruct(options), ShouldNotBeNil)
		})

		Convey("嵌套字段越界", func() {
			options := &storageOptions{Name: "memory", Index: indexOptions{Degree: 1}}
			So(ValidateStruct(options), ShouldNotBeNil)
		})

		Convey("多级指针", func() {
			options := &storageOptions{Name: "memory", Index: indexOptions{Degree: 1}}
			So(ValidateStruct(&options), ShouldNotBeNil)
		})

		Convey("跳过的对象", func() {
			var nilOptions *storageOptions
			now := time.Now()
			number := 42
			So(ValidateStruct(nil), ShouldBeNil)
			So(ValidateStruct(&nilOptions), ShouldBeNil)
			So(ValidateStruct(&now), ShouldBeNil)
			So(ValidateStruct(&number), ShouldBeNil)
			So(ValidateStruct(map[string]string{"k": "v"}), ShouldBeNil)
			So(ValidateStruct([]string{"a"}), ShouldBeNil)
		})
	})
}
