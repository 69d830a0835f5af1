package def

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// SetDefaults 按 def 标签为零值字段设置默认值，嵌套结构体递归处理
// 结构体指针为 nil 时只有在内部存在 def 标签才分配
func SetDefaults(object any) error {
	if object == nil {
		return errors.New("object cannot be nil")
	}
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		switch {
		case fv.Kind() == reflect.Struct:
			if err := setDefaults(fv); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
		case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct && fv.Type().Elem() != timeType:
			if fv.IsNil() {
				if !hasDefaults(fv.Type().Elem()) {
					continue
				}
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			if err := setDefaults(fv.Elem()); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
			continue
		}

		tag, ok := field.Tag.Lookup("def")
		if !ok || tag == "" || !fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Ptr {
			fv.Set(reflect.New(fv.Type().Elem()))
			fv = fv.Elem()
		}
		if err := SetValue(fv, tag); err != nil {
			return errors.WithMessagef(err, "set default for field %s", field.Name)
		}
	}
	return nil
}

func hasDefaults(rt reflect.Type) bool {
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.Tag.Get("def") != "" {
			return true
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType && ft != rt && hasDefaults(ft) {
			return true
		}
	}
	return false
}

// SetValue 把字符串解析为 rv 的类型并赋值
// 支持基本类型、time.Duration、time.Time、逗号分隔的切片以及 encoding.TextUnmarshaler
func SetValue(rv reflect.Value, text string) error {
	switch rv.Type() {
	case durationType:
		d, err := ParseDuration(text)
		if err != nil {
			return err
		}
		rv.SetInt(int64(d))
		return nil
	case timeType:
		t, err := ParseTime(text)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(t))
		return nil
	}

	if rv.CanAddr() && rv.Addr().Type().Implements(textUnmarshalerType) {
		if err := rv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return errors.Wrapf(err, "unmarshal %q to %s failed", text, rv.Type())
		}
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(text)
	case reflect.Bool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return errors.Wrapf(err, "invalid bool %q", text)
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(text, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int %q", text)
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(text, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint %q", text)
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(text, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float %q", text)
		}
		rv.SetFloat(v)
	case reflect.Slice:
		parts := strings.Split(text, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := SetValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return errors.WithMessagef(err, "element %d", i)
			}
		}
		rv.Set(slice)
	default:
		return errors.Errorf("unsupported default type %s", rv.Type())
	}
	return nil
}

// ParseDuration 支持 time.ParseDuration 格式，纯数字视为纳秒
func ParseDuration(text string) (time.Duration, error) {
	d, err := time.ParseDuration(text)
	if err == nil {
		return d, nil
	}
	if n, numErr := strconv.ParseInt(text, 10, 64); numErr == nil {
		return time.Duration(n), nil
	}
	return 0, errors.Wrapf(err, "invalid duration %q", text)
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime 依次尝试常见格式，纯数字视为 unix 秒
func ParseTime(text string) (time.Time, error) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	return time.Time{}, errors.Errorf("invalid time %q", text)
}
