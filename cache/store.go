package cache

import (
	"context"
	"time"

	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrConditionFailed = errors.New("condition failed")
)

type setOptions struct {
	Expiration time.Duration
	IfNotExist bool
}

type SetOption func(*setOptions)

func WithExpiration(expiration time.Duration) SetOption {
	return func(options *setOptions) {
		options.Expiration = expiration
	}
}

func WithIfNotExist() SetOption {
	return func(options *setOptions) {
		options.IfNotExist = true
	}
}

func applySetOptions(opts []SetOption) *setOptions {
	options := &setOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Store 物化结果缓存
type Store[K, V any] interface {
	// Set 设置键值对，WithIfNotExist 时键存在则返回 ErrConditionFailed
	Set(ctx context.Context, key K, value V, opts ...SetOption) error
	// Get 键不存在时返回 ErrKeyNotFound
	Get(ctx context.Context, key K) (V, error)
	// Del 键不存在时也返回成功
	Del(ctx context.Context, key K) error
	Close() error
}

const namespace = "github.com/hatlonely/rse/cache"

// NewStoreWithOptions 按类型名创建缓存，内置 MapStore、SyncMapStore、FreeCacheStore
// 其它类型从全局 ref 注册表中查找，options 为 nil 时创建 MapStore
func NewStoreWithOptions[K comparable, V any](options *ref.TypeOptions) (Store[K, V], error) {
	if options == nil {
		return NewMapStoreWithOptions[K, V](), nil
	}

	builtin := ref.NewRegistry()
	builtin.Register(namespace, "MapStore", NewMapStoreWithOptions[K, V])
	builtin.Register(namespace, "SyncMapStore", NewSyncMapStoreWithOptions[K, V])
	builtin.Register(namespace, "FreeCacheStore", NewFreeCacheStoreWithOptions[K, V])

	ns := options.Namespace
	if ns == "" {
		ns = namespace
	}
	obj, err := builtin.New(ns, options.Type, options.Options)
	if errors.Is(err, ref.ErrConstructorNotFound) {
		obj, err = ref.New(ns, options.Type, options.Options)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "create store %s:%s failed", ns, options.Type)
	}
	store, ok := obj.(Store[K, V])
	if !ok {
		return nil, errors.Errorf("%T is not a Store", obj)
	}
	return store, nil
}
