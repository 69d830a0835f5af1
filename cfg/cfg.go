package cfg

import (
	"github.com/hatlonely/rse/cfg/decoder"
	"github.com/hatlonely/rse/cfg/provider"
	"github.com/hatlonely/rse/cfg/storage"
	"github.com/hatlonely/rse/log"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

// Options 配置类初始化选项
type Options struct {
	Provider ref.TypeOptions  `cfg:"provider"`
	Decoder  ref.TypeOptions  `cfg:"decoder"`
	Logger   *ref.TypeOptions `cfg:"logger"`
}

// Config 只读的配置对象，转换为结构体时填充 def 默认值并按 validate 标签校验
type Config struct {
	storage storage.Storage
	logger  logger.Logger
	key     string
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	p, err := provider.NewProviderWithOptions(&options.Provider)
	if err != nil {
		return nil, errors.WithMessage(err, "provider.NewProviderWithOptions failed")
	}
	d, err := decoder.NewDecoderWithOptions(&options.Decoder)
	if err != nil {
		return nil, errors.WithMessage(err, "decoder.NewDecoderWithOptions failed")
	}

	data, err := p.Load()
	if err != nil {
		return nil, errors.WithMessage(err, "load config failed")
	}
	s, err := d.Decode(data)
	if err != nil {
		return nil, errors.WithMessage(err, "decode config failed")
	}

	l = l.WithGroup("cfg")
	l.Debug("config loaded", "provider", options.Provider.Type, "decoder", options.Decoder.Type, "bytes", len(data))
	return &Config{storage: storage.NewValidateStorage(s), logger: l}, nil
}

// NewConfig 从文件中加载配置，根据文件后缀自动选择解码器
func NewConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}
	decoderOptions, err := decoder.TypeOptionsForFile(filename)
	if err != nil {
		return nil, err
	}
	return NewConfigWithOptions(&Options{
		Provider: ref.TypeOptions{
			Type:    "FileProvider",
			Options: &provider.FileProviderOptions{FilePath: filename},
		},
		Decoder: *decoderOptions,
	})
}

// Sub 获取子配置对象，key 为空时返回自身
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}
	fullKey := key
	if c.key != "" {
		fullKey = c.key + "." + key
	}
	return &Config{storage: c.storage.Sub(key), logger: c.logger, key: fullKey}
}

// Key 相对根配置的完整路径
func (c *Config) Key() string {
	return c.key
}

// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
func (c *Config) ConvertTo(object any) error {
	if err := c.storage.ConvertTo(object); err != nil {
		c.logger.Warn("convert config failed", "key", c.key, "error", err)
		return errors.WithMessagef(err, "convert config %q failed", c.key)
	}
	return nil
}
