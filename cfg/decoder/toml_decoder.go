package decoder

import (
	"github.com/BurntSushi/toml"
	"github.com/hatlonely/rse/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoderOptions struct{}

type TomlDecoder struct{}

func NewTomlDecoderWithOptions(options *TomlDecoderOptions) *TomlDecoder {
	return &TomlDecoder{}
}

func (t *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "toml.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}
