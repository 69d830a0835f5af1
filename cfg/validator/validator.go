package validator

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Default 进程内共享的 validator，validator 会缓存结构体的校验规则
func Default() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// ValidateStruct 按 validate 标签校验结构体
// nil、非结构体和 time.Time 直接跳过；多级指针逐级解引用
func ValidateStruct(object any) error {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if rt := rv.Type(); rt.PkgPath() == "time" && rt.Name() == "Time" {
		return nil
	}

	if err := Default().Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "validate.Struct failed")
	}
	return nil
}
