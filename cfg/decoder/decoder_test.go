package decoder

import (
	"testing"

	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct {
	Name    string   `cfg:"name"`
	Rows    int64    `cfg:"rows"`
	Ratio   float64  `cfg:"ratio"`
	Columns []string `cfg:"columns"`
}

type document struct {
	Tables []table `cfg:"tables"`
}

var expected = document{Tables: []table{
	{Name: "users", Rows: 9007199254740993, Ratio: 0.5, Columns: []string{"id", "name"}},
	{Name: "orders", Rows: 2, Ratio: 1, Columns: []string{"id"}},
}}

func decode(t *testing.T, filename string, data string) document {
	options, err := TypeOptionsForFile(filename)
	require.NoError(t, err)
	d, err := NewDecoderWithOptions(options)
	require.NoError(t, err)
	s, err := d.Decode([]byte(data))
	require.NoError(t, err)

	var doc document
	require.NoError(t, s.ConvertTo(&doc))
	return doc
}

func TestDecoders(t *testing.T) {
	Convey("按后缀选择解码器", t, func() {
		Convey("yaml", func() {
			So(decode(t, "rse.yaml", `
# 表定义
tables:
  - name: users
    rows: 9007199254740993
    ratio: 0.5
    columns: [id, name]
  - name: orders
    rows: 2
    ratio: 1
    columns:
      - id
`), ShouldResemble, expected)
		})

		Convey("json", func() {
			So(decode(t, "rse.json", `{"tables": [
				{"name": "users", "rows": 9007199254740993, "ratio": 0.5, "columns": ["id", "name"]},
				{"name": "orders", "rows": 2, "ratio": 1, "columns": ["id"]}
			]}`), ShouldResemble, expected)
		})

		Convey("json5", func() {
			So(decode(t, "rse.json5", `{
				// 表定义
				"tables": [
					{"name": "users", "rows": 9007199254740993, "ratio": 0.5, "columns": ["id", "name",],},
					/* 订单 */
					{"name": "orders", "rows": 2, "ratio": 1, "columns": ["id"]},
				],
			}`), ShouldResemble, expected)
		})

		Convey("toml", func() {
			So(decode(t, "rse.toml", `
# 表定义
[[tables]]
name = "users"
rows = 9007199254740993
ratio = 0.5
columns = ["id", "name"]

[[tables]]
name = "orders"
rows = 2
ratio = 1.0
columns = ["id"]
`), ShouldResemble, expected)
		})
	})
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, `{"url": "http://a/b", "s": "a\"//b"} `+"\n",
		string(stripComments([]byte(`{"url": "http://a/b", "s": "a\"//b"} // tail`+"\n"))))
	assert.Equal(t, `{"a": 1}`, string(stripComments([]byte(`{/* x */"a": 1}`))))
}

func TestDecodeError(t *testing.T) {
	_, err := TypeOptionsForFile("rse.ini")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	for _, d := range []Decoder{
		NewYamlDecoderWithOptions(nil),
		NewJsonDecoderWithOptions(nil),
		NewTomlDecoderWithOptions(nil),
	} {
		_, err := d.Decode([]byte("a: [1, 2"))
		assert.Error(t, err)
	}

	_, err = NewDecoderWithOptions(&ref.TypeOptions{Type: "IniDecoder"})
	assert.True(t, errors.Is(err, ref.ErrConstructorNotFound))
}
