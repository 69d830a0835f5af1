package decoder

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/hatlonely/rse/cfg/storage"
	"github.com/pkg/errors"
)

type JsonDecoderOptions struct {
	// UseJSON5 允许注释和尾随逗号
	UseJSON5 bool `cfg:"useJSON5"`
}

type JsonDecoder struct {
	useJSON5 bool
}

func NewJsonDecoderWithOptions(options *JsonDecoderOptions) *JsonDecoder {
	if options == nil {
		return &JsonDecoder{}
	}
	return &JsonDecoder{useJSON5: options.UseJSON5}
}

// Decode 整数解码为 int64，不经过 float64
func (j *JsonDecoder) Decode(data []byte) (storage.Storage, error) {
	if j.useJSON5 {
		data = trailingComma.ReplaceAll(stripComments(data), []byte("$1"))
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var result any
	if err := decoder.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "json.Decode failed")
	}
	return storage.NewMapStorage(normalizeNumbers(result)), nil
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// stripComments 去掉字符串之外的 // 和 /* */ 注释
func stripComments(data []byte) []byte {
	var buf bytes.Buffer
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			buf.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '/' && i+1 < len(data) {
			switch data[i+1] {
			case '/':
				for i < len(data) && data[i] != '\n' {
					i++
				}
				if i < len(data) {
					buf.WriteByte('\n')
				}
				continue
			case '*':
				i += 2
				for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
					i++
				}
				i++
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		buf.WriteByte(c)
	}
	return buf.Bytes()
}

// normalizeNumbers 整数转为 int64，其余转为 float64
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
	}
	return v
}
