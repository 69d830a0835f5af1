package executable

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hatlonely/rse/cache"
	"github.com/hatlonely/rse/index"
	"github.com/hatlonely/rse/log"
	"github.com/hatlonely/rse/log/logger"
	"github.com/hatlonely/rse/provider"
	"github.com/hatlonely/rse/schema"
	"github.com/hatlonely/rse/tuple"
	"github.com/pkg/errors"
)

var (
	ErrNoIndexSource = errors.New("enumeration context has no index source")
	ErrContextClosed = errors.New("enumeration context closed")
)

// IndexSource 提供索引快照，storage.IndexStorageView 实现了该接口
type IndexSource interface {
	Snapshot(info *schema.IndexInfo) (index.OrderedIndex, error)
}

type ContextOption func(*EnumerationContext)

// WithParameters 本次枚举的参数
func WithParameters(params *provider.ParameterContext) ContextOption {
	return func(c *EnumerationContext) { c.params = params }
}

// WithCache 物化结果使用的缓存，由调用方负责关闭
func WithCache(store cache.Store[string, []tuple.Tuple]) ContextOption {
	return func(c *EnumerationContext) {
		c.cache = store
		c.ownCache = false
	}
}

func WithLogger(l logger.Logger) ContextOption {
	return func(c *EnumerationContext) { c.logger = l }
}

// EnumerationContext 一次查询枚举的上下文，显式传给每个算子
// 同一个上下文中每个索引只取一次快照，所有算子看到一致的数据
type EnumerationContext struct {
	id       string
	ctx      context.Context
	source   IndexSource
	params   *provider.ParameterContext
	cache    cache.Store[string, []tuple.Tuple]
	ownCache bool
	logger   logger.Logger

	mu        sync.Mutex
	snapshots map[*schema.IndexInfo]index.OrderedIndex
	stored    []string
	closed    bool
}

func NewEnumerationContext(ctx context.Context, source IndexSource, opts ...ContextOption) *EnumerationContext {
	c := &EnumerationContext{
		id:        uuid.NewString(),
		ctx:       ctx,
		source:    source,
		cache:     cache.NewMapStoreWithOptions[string, []tuple.Tuple](),
		ownCache:  true,
		snapshots: map[*schema.IndexInfo]index.OrderedIndex{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.params == nil {
		c.params = provider.NewParameterContext()
	}
	if c.logger == nil {
		c.logger = log.Default().WithGroup("enumeration")
	}
	return c
}

// ID 每个上下文唯一，物化结果的缓存键以它为前缀，多个查询可以共享同一个缓存
func (c *EnumerationContext) ID() string { return c.id }

// CacheKey 物化结果 name 在缓存中的键
func (c *EnumerationContext) CacheKey(name string) string {
	return c.id + "/" + name
}

func (c *EnumerationContext) Context() context.Context               { return c.ctx }
func (c *EnumerationContext) Parameters() *provider.ParameterContext { return c.params }
func (c *EnumerationContext) Logger() logger.Logger                  { return c.logger }

// Err 上下文被取消或者已经关闭时返回错误，算子在每次拉取之间检查
func (c *EnumerationContext) Err() error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	return nil
}

func (c *EnumerationContext) snapshot(info *schema.IndexInfo) (index.OrderedIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrContextClosed
	}
	if s, ok := c.snapshots[info]; ok {
		return s, nil
	}
	if c.source == nil {
		return nil, errors.Wrapf(ErrNoIndexSource, "index %s", info.Name())
	}
	s, err := c.source.Snapshot(info)
	if err != nil {
		return nil, errors.WithMessagef(err, "snapshot %s failed", info.Name())
	}
	c.snapshots[info] = s
	return s, nil
}

func (c *EnumerationContext) load(name string) ([]tuple.Tuple, bool, error) {
	key := c.CacheKey(name)
	rows, err := c.cache.Get(c.ctx, key)
	if errors.Is(err, cache.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithMessagef(err, "load %s failed", key)
	}
	return rows, true, nil
}

func (c *EnumerationContext) store(name string, rows []tuple.Tuple) error {
	key := c.CacheKey(name)
	if err := c.cache.Set(c.ctx, key, rows); err != nil {
		return errors.WithMessagef(err, "store %s failed", key)
	}
	c.mu.Lock()
	c.stored = append(c.stored, key)
	c.mu.Unlock()
	return nil
}

// Close 释放物化的数据和索引快照，可以重复调用
func (c *EnumerationContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stored := c.stored
	c.stored = nil
	c.snapshots = nil
	c.mu.Unlock()

	var err error
	for _, key := range stored {
		if e := c.cache.Del(context.Background(), key); e != nil && err == nil {
			err = errors.WithMessagef(e, "release %s failed", key)
		}
	}
	if c.ownCache {
		if e := c.cache.Close(); e != nil && err == nil {
			err = e
		}
	}
	c.logger.Debug("enumeration closed", "stored", len(stored))
	return err
}
