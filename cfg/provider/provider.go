package provider

import (
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*FileProvider](NewFileProviderWithOptions)
	ref.MustRegisterT[*MemoryProvider](NewMemoryProviderWithOptions)
}

const namespace = "github.com/hatlonely/rse/cfg/provider"

// Provider 配置数据提供者，配置只在创建时读取一次
type Provider interface {
	Load() (data []byte, err error)
}

// NewProviderWithOptions namespace 为空时使用 provider 包
func NewProviderWithOptions(options *ref.TypeOptions) (Provider, error) {
	p, err := ref.NewWithTypeOptions[Provider](options, namespace)
	if err != nil {
		return nil, errors.WithMessage(err, "create provider failed")
	}
	return p, nil
}

type MemoryProviderOptions struct {
	Data string `cfg:"data"`
}

// MemoryProvider 直接提供内存中的配置内容
type MemoryProvider struct {
	data []byte
}

func NewMemoryProviderWithOptions(options *MemoryProviderOptions) *MemoryProvider {
	if options == nil {
		return &MemoryProvider{}
	}
	return &MemoryProvider{data: []byte(options.Data)}
}

func (p *MemoryProvider) Load() ([]byte, error) {
	return p.data, nil
}
