package compile

import (
	"context"
	"sync"
	"time"

	"github.com/hatlonely/rse/executable"
	"github.com/hatlonely/rse/log"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/ref"
	"github.com/hatlonely/rse/schema"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrOrderNotSatisfied   = errors.New("source order does not satisfy requirement")
)

type CompilerOptions struct {
	// Correction 编译前的排序修正模式
	Correction CorrectionMode `cfg:"correction" def:"full" validate:"omitempty,oneof=full actualOrder none"`
	// ReindexDegree ReindexProvider 临时 B 树的度
	ReindexDegree int              `cfg:"reindexDegree" def:"32" validate:"gte=0"`
	Logger        *ref.TypeOptions `cfg:"logger"`
}

// TypeCompiler 把一种 provider 编译为可执行算子，sources 为已经编译好的数据源
type TypeCompiler interface {
	Compile(c *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error)
}

type TypeCompilerFunc func(c *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error)

func (f TypeCompilerFunc) Compile(c *Compilation, node provider.CompilableProvider, sources []CompileResult) (CompileResult, error) {
	return f(c, node, sources)
}

// Compiler 按 provider 类型分派到注册的 TypeCompiler，并发安全
type Compiler struct {
	options   CompilerOptions
	model     *schema.StorageInfo
	corrector *OrderingCorrector
	logger    logger.Logger

	mu        sync.RWMutex
	compilers map[provider.ProviderType]TypeCompiler
}

// NewCompilerWithOptions 创建编译器并注册内置的 TypeCompiler
// model 不为空时，编译时检查索引属于该模型
func NewCompilerWithOptions(options *CompilerOptions, model *schema.StorageInfo) (*Compiler, error) {
	if options == nil {
		options = &CompilerOptions{Correction: CorrectionFull}
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	c := &Compiler{
		options:   *options,
		model:     model,
		corrector: NewOrderingCorrector(options.Correction),
		logger:    l.WithGroup("compiler"),
		compilers: map[provider.ProviderType]TypeCompiler{},
	}
	for t, tc := range builtinCompilers {
		c.compilers[t] = tc
	}
	return c, nil
}

// Register 注册或者替换一种 provider 的编译器
func (c *Compiler) Register(t provider.ProviderType, compiler TypeCompiler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compilers[t] = compiler
}

func (c *Compiler) Options() CompilerOptions { return c.options }

func (c *Compiler) typeCompiler(t provider.ProviderType) (TypeCompiler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tc, ok := c.compilers[t]
	return tc, ok
}

// Compile 先做排序修正，再后序编译整棵树，共享的子树只编译一次
// 不支持的节点在产生任何行之前返回 ErrUnsupportedProvider
func (c *Compiler) Compile(ctx context.Context, root provider.CompilableProvider) (executable.Provider, error) {
	if root == nil {
		return nil, errors.Wrap(provider.ErrInvalidProvider, "root is nil")
	}
	start := time.Now()
	corrected, err := c.corrector.Correct(root)
	if err != nil {
		return nil, errors.WithMessage(err, "ordering correction failed")
	}
	compilation := &Compilation{
		ctx:      ctx,
		compiler: c,
		done:     map[provider.CompilableProvider]CompileResult{},
	}
	result, err := compilation.Compile(corrected)
	if err != nil {
		c.logger.WarnContext(ctx, "compile failed", "root", root.String(), "error", err.Error())
		return nil, err
	}
	c.logger.DebugContext(ctx, "compiled", "root", root.String(), "nodes", len(compilation.done), "duration", time.Since(start).String())
	return result.Provider(), nil
}

// Compilation 一次 Compile 调用的状态
type Compilation struct {
	ctx      context.Context
	compiler *Compiler
	done     map[provider.CompilableProvider]CompileResult
}

func (c *Compilation) Context() context.Context { return c.ctx }
func (c *Compilation) Compiler() *Compiler      { return c.compiler }

func (c *Compilation) Compile(node provider.CompilableProvider) (CompileResult, error) {
	if result, ok := c.done[node]; ok {
		return result, nil
	}
	if err := c.ctx.Err(); err != nil {
		return CompileResult{}, err
	}

	sources := make([]CompileResult, 0, len(node.Sources()))
	for _, source := range node.Sources() {
		result, err := c.Compile(source)
		if err != nil {
			return CompileResult{}, err
		}
		sources = append(sources, result)
	}

	tc, ok := c.compiler.typeCompiler(node.Type())
	if !ok {
		return CompileResult{}, errors.Wrapf(ErrUnsupportedProvider, "no compiler for %s", node.Type())
	}
	result, err := tc.Compile(c, node, sources)
	if err != nil {
		return CompileResult{}, errors.WithMessagef(err, "compile %s", node)
	}
	c.compiler.logger.DebugContext(c.ctx, "node compiled",
		"provider", node.String(),
		"operator", executable.Name(result.Provider()),
		"compatible", result.IsCompatible(),
	)
	c.done[node] = result
	return result, nil
}

// ToCompatible 不可重复读取的结果包装为 StoredProvider
func (c *Compilation) ToCompatible(result CompileResult) (CompileResult, error) {
	if result.IsCompatible() {
		return result, nil
	}
	p := result.Provider()
	store, err := provider.NewStoreProvider(p.Origin(), "")
	if err != nil {
		return CompileResult{}, err
	}
	return Compiled(executable.NewStoredProvider(store, p, store.Name())), nil
}
