package rse

import (
	"context"
	"iter"
	"sync"

	"github.com/hatlonely/rse/executable"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/storage"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

// QueryRequest 一次查询，Bindings 在枚举时才求值
type QueryRequest struct {
	Provider provider.CompilableProvider
	Bindings []provider.ParameterBinding
}

// Session 一个事务中的读写，多个 goroutine 可以共享同一个会话
type Session struct {
	engine *Engine
	view   *storage.IndexStorageView
	logger logger.Logger

	mu      sync.Mutex
	results map[*Result]struct{}
}

func (s *Session) Transaction() *storage.Transaction { return s.view.Transaction() }
func (s *Session) View() *storage.IndexStorageView   { return s.view }

// Execute 依次执行命令，失败时之前的命令保持生效
func (s *Session) Execute(ctx context.Context, commands ...storage.Command) (map[int]storage.CommandResult, error) {
	results, err := s.view.ExecuteBatch(ctx, commands)
	if err != nil {
		s.logger.WarnContext(ctx, "execute failed", "commands", len(commands), "applied", len(results), "error", err.Error())
		return results, err
	}
	s.logger.DebugContext(ctx, "executed", "commands", len(commands))
	return results, nil
}

// Query 编译并准备枚举，结果在第一次遍历时才读取数据
func (s *Session) Query(ctx context.Context, request QueryRequest) (*Result, error) {
	if !s.view.Transaction().IsActive() {
		return nil, storage.ErrTransactionNotActive
	}
	p, err := s.engine.Compile(ctx, request.Provider)
	if err != nil {
		return nil, err
	}

	opts := []executable.ContextOption{
		executable.WithParameters(provider.NewParameterContext(request.Bindings...)),
		executable.WithLogger(s.logger),
	}
	if s.engine.cache != nil {
		opts = append(opts, executable.WithCache(s.engine.cache))
	}
	r := &Result{
		session:  s,
		provider: p,
		ctx:      executable.NewEnumerationContext(ctx, s.view, opts...),
	}
	s.mu.Lock()
	if s.results == nil {
		s.results = map[*Result]struct{}{}
	}
	s.results[r] = struct{}{}
	s.mu.Unlock()
	return r, nil
}

// Commit 结束事务并关闭所有未关闭的结果
func (s *Session) Commit() error {
	if err := s.view.Transaction().Commit(); err != nil {
		return err
	}
	s.logger.Debug("committed", "openResults", s.openResults())
	return s.closeResults()
}

// Rollback 只结束事务，已经执行的命令不会撤销
func (s *Session) Rollback() error {
	if err := s.view.Transaction().Rollback(); err != nil {
		return err
	}
	s.logger.Debug("rolled back", "openResults", s.openResults())
	return s.closeResults()
}

func (s *Session) closeResults() error {
	s.mu.Lock()
	results := s.results
	s.results = nil
	s.mu.Unlock()

	var err error
	for r := range results {
		if e := r.ctx.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (s *Session) openResults() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *Session) release(r *Result) {
	s.mu.Lock()
	delete(s.results, r)
	s.mu.Unlock()
}

// Result 查询结果，可以多次遍历，每次遍历看到同一组索引快照
type Result struct {
	session  *Session
	provider executable.Provider
	ctx      *executable.EnumerationContext
}

func (r *Result) Header() *provider.Header { return r.provider.Header() }

// Plan 可执行算子树的文本形式
func (r *Result) Plan() string { return executable.Format(r.provider) }

// All 出错时产出 (nil, err) 并结束
func (r *Result) All() iter.Seq2[tuple.Tuple, error] {
	return r.provider.Enumerate(r.ctx)
}

func (r *Result) Collect() ([]tuple.Tuple, error) {
	return executable.Collect(r.ctx, r.provider)
}

// Close 释放快照和物化数据，可以重复调用
func (r *Result) Close() error {
	r.session.release(r)
	return errors.WithMessage(r.ctx.Close(), "close result failed")
}
