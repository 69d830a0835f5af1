package decoder

import (
	"path/filepath"
	"strings"

	"github.com/hatlonely/rse/cfg/storage"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*JsonDecoder](NewJsonDecoderWithOptions)
	ref.MustRegisterT[*YamlDecoder](NewYamlDecoderWithOptions)
	ref.MustRegisterT[*TomlDecoder](NewTomlDecoderWithOptions)
}

const namespace = "github.com/hatlonely/rse/cfg/decoder"

var ErrUnsupportedFormat = errors.New("unsupported config format")

// Decoder 将原始配置数据解码为存储对象
type Decoder interface {
	Decode(data []byte) (storage.Storage, error)
}

// NewDecoderWithOptions namespace 为空时使用 decoder 包
func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	d, err := ref.NewWithTypeOptions[Decoder](options, namespace)
	if err != nil {
		return nil, errors.WithMessage(err, "create decoder failed")
	}
	return d, nil
}

// TypeOptionsForFile 根据文件后缀选择解码器
//
//	.json/.json5 -> JsonDecoder
//	.yaml/.yml   -> YamlDecoder
//	.toml        -> TomlDecoder
func TypeOptionsForFile(filename string) (*ref.TypeOptions, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json", ".json5":
		return &ref.TypeOptions{Namespace: namespace, Type: "JsonDecoder", Options: &JsonDecoderOptions{UseJSON5: ext == ".json5"}}, nil
	case ".yaml", ".yml":
		return &ref.TypeOptions{Namespace: namespace, Type: "YamlDecoder"}, nil
	case ".toml":
		return &ref.TypeOptions{Namespace: namespace, Type: "TomlDecoder"}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "file extension %q", ext)
}
