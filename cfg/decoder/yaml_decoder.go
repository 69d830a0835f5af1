package decoder

import (
	"github.com/hatlonely/rse/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YamlDecoderOptions struct{}

// YamlDecoder 只取第一个文档
type YamlDecoder struct{}

func NewYamlDecoderWithOptions(options *YamlDecoderOptions) *YamlDecoder {
	return &YamlDecoder{}
}

func (y *YamlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}
