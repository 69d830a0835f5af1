package tuple

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// FieldType 字段的语义类型，取值集合是封闭的
type FieldType uint8

const (
	TypeInt64 FieldType = iota + 1
	TypeFloat64
	TypeDecimal
	TypeString
	TypeBool
	TypeTime
	TypeBytes
)

var fieldTypeNames = map[FieldType]string{
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeBytes:   "bytes",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// IsValid 判断类型是否属于已知类型集合
func (t FieldType) IsValid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// IsNumeric int64、float64、decimal 为数值类型
func (t FieldType) IsNumeric() bool {
	return t == TypeInt64 || t == TypeFloat64 || t == TypeDecimal
}

// ParseFieldType 从配置中的文本解析字段类型，大小写不敏感
func ParseFieldType(text string) (FieldType, error) {
	name := strings.ToLower(strings.TrimSpace(text))
	switch name {
	case "int", "integer":
		return TypeInt64, nil
	case "float", "double":
		return TypeFloat64, nil
	case "timestamp", "datetime":
		return TypeTime, nil
	}
	for t, n := range fieldTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown field type: %q", text)
}

// UnmarshalText 实现 encoding.TextUnmarshaler，配置文件中可以直接写类型名
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t FieldType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, errors.Errorf("invalid field type: %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// normalize 将 Go 值规整为字段类型对应的存储表示
// 各种宽度的整数统一为 int64，float32 统一为 float64
func normalize(t FieldType, value any) (any, bool) {
	switch t {
	case TypeInt64:
		switch v := value.(type) {
		case int64:
			return v, true
		case int:
			return int64(v), true
		case int32:
			return int64(v), true
		case int16:
			return int64(v), true
		case int8:
			return int64(v), true
		case uint32:
			return int64(v), true
		case uint16:
			return int64(v), true
		case uint8:
			return int64(v), true
		}
	case TypeFloat64:
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		}
	case TypeDecimal:
		switch v := value.(type) {
		case decimal.Decimal:
			return v, true
		case *decimal.Decimal:
			if v != nil {
				return *v, true
			}
		}
	case TypeString:
		if v, ok := value.(string); ok {
			return v, true
		}
	case TypeBool:
		if v, ok := value.(bool); ok {
			return v, true
		}
	case TypeTime:
		if v, ok := value.(time.Time); ok {
			return v, true
		}
	case TypeBytes:
		if v, ok := value.([]byte); ok {
			return v, true
		}
	}
	return nil, false
}

// CompareValues 比较同一字段类型的两个非空值
func CompareValues(t FieldType, x, y any) int {
	switch t {
	case TypeInt64:
		a, b := x.(int64), y.(int64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case TypeFloat64:
		a, b := x.(float64), y.(float64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case TypeDecimal:
		return x.(decimal.Decimal).Cmp(y.(decimal.Decimal))
	case TypeString:
		return strings.Compare(x.(string), y.(string))
	case TypeBool:
		a, b := x.(bool), y.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		}
		return 1
	case TypeTime:
		return x.(time.Time).Compare(y.(time.Time))
	case TypeBytes:
		return bytes.Compare(x.([]byte), y.([]byte))
	}
	return 0
}
