package cache

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/rse/cache/serializer"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

type FreeCacheStoreOptions struct {
	// Size 缓存字节数，freecache 最小为 512KB
	Size          int              `cfg:"size" def:"33554432" validate:"gte=0"`
	DefaultTTL    time.Duration    `cfg:"defaultTTL"`
	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// FreeCacheStore 基于 freecache 的字节缓存，键值通过 serializer 转换为字节
type FreeCacheStore[K, V any] struct {
	cache           *freecache.Cache
	defaultTTL      time.Duration
	keySerializer   serializer.Serializer[K, []byte]
	valueSerializer serializer.Serializer[V, []byte]
}

func NewFreeCacheStoreWithOptions[K, V any](options *FreeCacheStoreOptions) (*FreeCacheStore[K, V], error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	size := options.Size
	if size == 0 {
		size = 32 * 1024 * 1024
	}

	keySerializer, err := serializer.NewByteSerializerWithOptions[K](options.KeySerializer)
	if err != nil {
		return nil, errors.WithMessage(err, "create key serializer failed")
	}
	valueSerializer, err := serializer.NewByteSerializerWithOptions[V](options.ValSerializer)
	if err != nil {
		return nil, errors.WithMessage(err, "create value serializer failed")
	}

	return &FreeCacheStore[K, V]{
		cache:           freecache.NewCache(size),
		defaultTTL:      options.DefaultTTL,
		keySerializer:   keySerializer,
		valueSerializer: valueSerializer,
	}, nil
}

func (s *FreeCacheStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := applySetOptions(opts)

	keyBytes, err := s.keySerializer.Serialize(key)
	if err != nil {
		return errors.WithMessage(err, "serialize key failed")
	}
	valueBytes, err := s.valueSerializer.Serialize(value)
	if err != nil {
		return errors.WithMessage(err, "serialize value failed")
	}

	if options.IfNotExist {
		if _, err := s.cache.Get(keyBytes); err == nil {
			return ErrConditionFailed
		}
	}

	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}
	if err := s.cache.Set(keyBytes, valueBytes, int(expiration.Seconds())); err != nil {
		return errors.Wrap(err, "freecache set failed")
	}
	return nil
}

func (s *FreeCacheStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	keyBytes, err := s.keySerializer.Serialize(key)
	if err != nil {
		return zero, errors.WithMessage(err, "serialize key failed")
	}
	valueBytes, err := s.cache.Get(keyBytes)
	if err != nil {
		return zero, ErrKeyNotFound
	}
	return s.valueSerializer.Deserialize(valueBytes)
}

func (s *FreeCacheStore[K, V]) Del(ctx context.Context, key K) error {
	keyBytes, err := s.keySerializer.Serialize(key)
	if err != nil {
		return errors.WithMessage(err, "serialize key failed")
	}
	s.cache.Del(keyBytes)
	return nil
}

func (s *FreeCacheStore[K, V]) EntryCount() int64 {
	return s.cache.EntryCount()
}

func (s *FreeCacheStore[K, V]) Close() error {
	s.cache.Clear()
	return nil
}
