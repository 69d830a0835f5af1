package storage

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/rse/cfg/def"
	"github.com/pkg/errors"
)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// MapStorage 基于 map 和 slice 的存储实现，数据通常来自 yaml/json/toml 解码结果
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

// Sub key 为空时返回自身，路径不存在时返回数据为 nil 的存储
func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}
	current := ms.data
	for _, k := range parseKey(key) {
		current = valueByKey(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

// ConvertTo 先按 def 标签填充默认值，再用配置数据覆盖
// 目标中类型为 any 的结构体字段保留为 *MapStorage，供 ref 构造时再转换
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if rv.Elem().Kind() == reflect.Struct {
		if err := def.SetDefaults(object); err != nil {
			return errors.WithMessage(err, "def.SetDefaults failed")
		}
	}
	if ms.data == nil {
		return nil
	}
	return convertValue(ms.data, rv.Elem(), "")
}

// parseKey "a.b[0].c" => [a b 0 c]
func parseKey(key string) []string {
	var keys []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			keys = append(keys, current.String())
			current.Reset()
		}
	}
	inBracket := false
	for _, char := range key {
		switch {
		case char == '.' && !inBracket:
			flush()
		case char == '[':
			flush()
			inBracket = true
		case char == ']' && inBracket:
			flush()
			inBracket = false
		default:
			current.WriteRune(char)
		}
	}
	flush()
	return keys
}

func valueByKey(data any, key string) any {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if fmt.Sprint(k.Interface()) == key {
				return rv.MapIndex(k).Interface()
			}
		}
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil
		}
		return rv.Index(index).Interface()
	}
	return nil
}

// convertValue path 只用于错误信息
func convertValue(src any, dst reflect.Value, path string) error {
	sv := reflect.ValueOf(src)
	for sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if !sv.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
			if dst.Elem().Kind() == reflect.Struct {
				if err := def.SetDefaults(dst.Interface()); err != nil {
					return errors.WithMessagef(err, "set defaults for %s", path)
				}
			}
		}
		return convertValue(sv.Interface(), dst.Elem(), path)
	}

	if dst.Type() == durationType {
		return convertToDuration(sv, dst, path)
	}
	if dst.Type() == timeType && sv.Kind() == reflect.String {
		t, err := def.ParseTime(sv.String())
		if err != nil {
			return errors.WithMessagef(err, "convert %s", path)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if sv.Kind() == reflect.String && dst.CanAddr() && dst.Addr().Type().Implements(textUnmarshalerType) {
		if err := dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(sv.String())); err != nil {
			return errors.Wrapf(err, "convert %s", path)
		}
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(sv)
			return nil
		}
	case reflect.Map:
		return convertToMap(sv, dst, path)
	case reflect.Slice:
		if sv.Kind() == reflect.String {
			break
		}
		return convertToSlice(sv, dst, path)
	case reflect.Struct:
		return convertToStruct(sv, dst, path)
	case reflect.String:
		dst.SetString(fmt.Sprint(sv.Interface()))
		return nil
	case reflect.Bool:
		if sv.Kind() == reflect.Bool {
			dst.SetBool(sv.Bool())
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if isNumber(sv) {
			if sv.CanFloat() && sv.Float() != float64(int64(sv.Float())) {
				return errors.Errorf("convert %s: %v is not an integer", path, sv.Interface())
			}
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isNumber(sv) {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
	}

	if sv.Kind() == reflect.String {
		if err := def.SetValue(dst, sv.String()); err != nil {
			return errors.WithMessagef(err, "convert %s", path)
		}
		return nil
	}
	return errors.Errorf("convert %s: cannot convert %s to %s", path, sv.Type(), dst.Type())
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertToDuration 字符串按 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertToDuration(src, dst reflect.Value, path string) error {
	switch {
	case src.Kind() == reflect.String:
		d, err := def.ParseDuration(src.String())
		if err != nil {
			return errors.WithMessagef(err, "convert %s", path)
		}
		dst.SetInt(int64(d))
	case src.CanInt():
		dst.SetInt(src.Int())
	case src.CanUint():
		dst.SetInt(int64(src.Uint()))
	case src.CanFloat():
		dst.SetInt(int64(src.Float() * float64(time.Second)))
	default:
		return errors.Errorf("convert %s: cannot convert %s to time.Duration", path, src.Type())
	}
	return nil
}

func convertToMap(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("convert %s: source is %s, not a map", path, src.Type())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range src.MapKeys() {
		k := reflect.New(dst.Type().Key()).Elem()
		if err := convertValue(key.Interface(), k, path); err != nil {
			return err
		}
		v := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), v, joinPath(path, fmt.Sprint(key.Interface()))); err != nil {
			return err
		}
		dst.SetMapIndex(k, v)
	}
	return nil
}

func convertToSlice(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return errors.Errorf("convert %s: source is %s, not a slice", path, src.Type())
	}
	n := src.Len()
	slice := reflect.MakeSlice(dst.Type(), n, n)
	for i := 0; i < n; i++ {
		item := slice.Index(i)
		if item.Kind() == reflect.Struct {
			if err := def.SetDefaults(item.Addr().Interface()); err != nil {
				return errors.WithMessagef(err, "set defaults for %s[%d]", path, i)
			}
		}
		if err := convertValue(src.Index(i).Interface(), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	dst.Set(slice)
	return nil
}

func convertToStruct(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("convert %s: source is %s, not a map", path, src.Type())
	}
	values := make(map[string]reflect.Value, src.Len())
	for _, key := range src.MapKeys() {
		values[fmt.Sprint(key.Interface())] = src.MapIndex(key)
	}

	dt := dst.Type()
	for i := 0; i < dt.NumField(); i++ {
		field := dt.Field(i)
		fv := dst.Field(i)
		if !fv.CanSet() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		value, ok := values[name]
		if !ok {
			value, ok = lookupFold(values, name)
		}
		if !ok {
			continue
		}

		fieldPath := joinPath(path, name)
		// 未确定类型的选项保留为子存储
		if fv.Kind() == reflect.Interface && fv.Type().NumMethod() == 0 {
			raw := value.Interface()
			rk := reflect.ValueOf(raw).Kind()
			if rk == reflect.Map || rk == reflect.Slice {
				fv.Set(reflect.ValueOf(NewMapStorage(raw)))
				continue
			}
		}
		if err := convertValue(value.Interface(), fv, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

// fieldName 依次使用 cfg、json、yaml、toml 标签，都没有时使用字段名
func fieldName(field reflect.StructField) string {
	for _, tag := range []string{"cfg", "json", "yaml", "toml"} {
		if value, ok := field.Tag.Lookup(tag); ok {
			if name := strings.Split(value, ",")[0]; name != "" {
				return name
			}
		}
	}
	return field.Name
}

func lookupFold(values map[string]reflect.Value, name string) (reflect.Value, bool) {
	for key, value := range values {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return reflect.Value{}, false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
