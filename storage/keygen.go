package storage

import (
	"context"
	"encoding/hex"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hatlonely/rse/ref"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*IncrementalKeyGenerator](NewIncrementalKeyGeneratorWithOptions)
	ref.MustRegisterT[*UUIDKeyGenerator](NewUUIDKeyGeneratorWithOptions)
}

// KeyGenerator 生成单字段主键
type KeyGenerator interface {
	Descriptor() *tuple.Descriptor
	Next(ctx context.Context) (tuple.Tuple, error)
}

// NewKeyGeneratorWithOptions namespace 为空时在 storage 包中查找
func NewKeyGeneratorWithOptions(options *ref.TypeOptions) (KeyGenerator, error) {
	g, err := ref.NewWithTypeOptions[KeyGenerator](options, "github.com/hatlonely/rse/storage")
	if err != nil {
		return nil, errors.WithMessage(err, "create key generator failed")
	}
	return g, nil
}

type IncrementalKeyGeneratorOptions struct {
	// Start 生成的第一个值
	Start int64 `cfg:"start" def:"1"`
	Step  int64 `cfg:"step" def:"1" validate:"ne=0"`
}

var int64KeyDescriptor = tuple.MustNewDescriptor(tuple.TypeInt64)

// IncrementalKeyGenerator 并发安全的自增 int64 主键
type IncrementalKeyGenerator struct {
	next atomic.Int64
	step int64
}

func NewIncrementalKeyGeneratorWithOptions(options *IncrementalKeyGeneratorOptions) (*IncrementalKeyGenerator, error) {
	start, step := int64(1), int64(1)
	if options != nil {
		if options.Start != 0 {
			start = options.Start
		}
		if options.Step != 0 {
			step = options.Step
		}
	}
	g := &IncrementalKeyGenerator{step: step}
	g.next.Store(start - step)
	return g, nil
}

func (g *IncrementalKeyGenerator) Descriptor() *tuple.Descriptor {
	return int64KeyDescriptor
}

func (g *IncrementalKeyGenerator) NextValue() int64 {
	return g.next.Add(g.step)
}

func (g *IncrementalKeyGenerator) Next(ctx context.Context) (tuple.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tuple.FromValues(int64KeyDescriptor, g.NextValue())
}

type UUIDKeyGeneratorOptions struct {
	// Version uuid 版本：v4, v7
	Version     string `cfg:"version" def:"v7" validate:"omitempty,oneof=v4 v7"`
	WithHyphens bool   `cfg:"withHyphens"`
}

var stringKeyDescriptor = tuple.MustNewDescriptor(tuple.TypeString)

// UUIDKeyGenerator 字符串主键，v7 按生成时间有序
type UUIDKeyGenerator struct {
	version     string
	withHyphens bool
}

func NewUUIDKeyGeneratorWithOptions(options *UUIDKeyGeneratorOptions) (*UUIDKeyGenerator, error) {
	g := &UUIDKeyGenerator{version: "v7"}
	if options != nil {
		if options.Version != "" {
			g.version = options.Version
		}
		g.withHyphens = options.WithHyphens
	}
	if g.version != "v4" && g.version != "v7" {
		return nil, errors.Errorf("unsupported uuid version: %s", g.version)
	}
	return g, nil
}

func (g *UUIDKeyGenerator) Descriptor() *tuple.Descriptor {
	return stringKeyDescriptor
}

func (g *UUIDKeyGenerator) Next(ctx context.Context) (tuple.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u uuid.UUID
	if g.version == "v4" {
		u = uuid.New()
	} else {
		var err error
		if u, err = uuid.NewV7(); err != nil {
			return nil, errors.Wrap(err, "uuid.NewV7 failed")
		}
	}
	s := hex.EncodeToString(u[:])
	if g.withHyphens {
		s = u.String()
	}
	return tuple.FromValues(stringKeyDescriptor, s)
}
