package rse

import (
	"context"

	"github.com/hatlonely/rse/cache"
	"github.com/hatlonely/rse/cfg"
	"github.com/hatlonely/rse/compile"
	"github.com/hatlonely/rse/executable"
	"github.com/hatlonely/rse/log"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/ref"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/storage"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"

	_ "github.com/hatlonely/rse/tuple/codec"
)

type Options struct {
	Storage  storage.IndexStorageOptions `cfg:"storage"`
	Compiler compile.CompilerOptions     `cfg:"compiler"`
	// Cache 物化结果的缓存，所有查询共享；为空时每个查询使用独立的 MapStore
	Cache  *ref.TypeOptions `cfg:"cache"`
	Logger *ref.TypeOptions `cfg:"logger"`
}

// Engine 一个存储模型上的查询引擎，并发安全
type Engine struct {
	model    *schema.StorageInfo
	storage  *storage.IndexStorage
	compiler *compile.Compiler
	cache    cache.Store[string, []tuple.Tuple]
	logger   logger.Logger
}

func NewEngineWithOptions(options *Options, model *schema.StorageInfo) (*Engine, error) {
	if model == nil {
		return nil, errors.Wrap(schema.ErrInvalidSchema, "model is nil")
	}
	if options == nil {
		options = &Options{}
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	storageOptions := options.Storage
	if storageOptions.Logger == nil {
		storageOptions.Logger = options.Logger
	}
	s, err := storage.NewIndexStorageWithOptions(model, &storageOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "storage.NewIndexStorageWithOptions failed")
	}
	compilerOptions := options.Compiler
	if compilerOptions.Logger == nil {
		compilerOptions.Logger = options.Logger
	}
	c, err := compile.NewCompilerWithOptions(&compilerOptions, model)
	if err != nil {
		return nil, errors.WithMessage(err, "compile.NewCompilerWithOptions failed")
	}

	e := &Engine{
		model:    model,
		storage:  s,
		compiler: c,
		logger:   l.WithGroup("engine"),
	}
	if options.Cache != nil {
		if e.cache, err = cache.NewStoreWithOptions[string, []tuple.Tuple](options.Cache); err != nil {
			return nil, errors.WithMessage(err, "cache.NewStoreWithOptions failed")
		}
	}
	e.logger.Info("engine created", "tables", len(model.Tables()), "correction", string(compilerOptions.Correction))
	return e, nil
}

// NewEngineFromConfig 从配置文件创建引擎，rse 为引擎选项，schema 为存储模型定义
func NewEngineFromConfig(filename string) (*Engine, error) {
	c, err := cfg.NewConfig(filename)
	if err != nil {
		return nil, errors.WithMessage(err, "cfg.NewConfig failed")
	}
	var options Options
	if err := c.Sub("rse").ConvertTo(&options); err != nil {
		return nil, err
	}
	var def schema.StorageDef
	if err := c.Sub("schema").ConvertTo(&def); err != nil {
		return nil, err
	}
	model, err := schema.Build(&def)
	if err != nil {
		return nil, errors.WithMessage(err, "schema.Build failed")
	}
	return NewEngineWithOptions(&options, model)
}

func (e *Engine) Model() *schema.StorageInfo     { return e.model }
func (e *Engine) Storage() *storage.IndexStorage { return e.storage }
func (e *Engine) Compiler() *compile.Compiler    { return e.compiler }

// Compile 编译查询，每次调用得到新的可执行算子树，引擎不持有编译结果
func (e *Engine) Compile(ctx context.Context, root provider.CompilableProvider) (executable.Provider, error) {
	return e.compiler.Compile(ctx, root)
}

// OpenSession 打开一个带新事务的会话
func (e *Engine) OpenSession(isolation storage.IsolationLevel) *Session {
	view := e.storage.CreateView(isolation)
	return &Session{
		engine: e,
		view:   view,
		logger: e.logger.With("transaction", view.Transaction().ID().String()),
	}
}

// Close 关闭共享缓存
func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Close()
}
