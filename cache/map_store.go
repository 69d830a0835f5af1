package cache

import (
	"context"
	"sync"
)

// MapStore 非并发安全的 map 缓存，忽略过期时间
type MapStore[K comparable, V any] struct {
	m map[K]V
}

func NewMapStoreWithOptions[K comparable, V any]() *MapStore[K, V] {
	return &MapStore[K, V]{m: map[K]V{}}
}

func (s *MapStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	if applySetOptions(opts).IfNotExist {
		if _, ok := s.m[key]; ok {
			return ErrConditionFailed
		}
	}
	s.m[key] = value
	return nil
}

func (s *MapStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	value, ok := s.m[key]
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return value, nil
}

func (s *MapStore[K, V]) Del(ctx context.Context, key K) error {
	delete(s.m, key)
	return nil
}

func (s *MapStore[K, V]) Close() error {
	clear(s.m)
	return nil
}

// SyncMapStore 基于 sync.Map 的并发安全缓存
type SyncMapStore[K comparable, V any] struct {
	m sync.Map
}

func NewSyncMapStoreWithOptions[K comparable, V any]() *SyncMapStore[K, V] {
	return &SyncMapStore[K, V]{}
}

func (s *SyncMapStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	if applySetOptions(opts).IfNotExist {
		if _, loaded := s.m.LoadOrStore(key, value); loaded {
			return ErrConditionFailed
		}
		return nil
	}
	s.m.Store(key, value)
	return nil
}

func (s *SyncMapStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	value, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return value.(V), nil
}

func (s *SyncMapStore[K, V]) Del(ctx context.Context, key K) error {
	s.m.Delete(key)
	return nil
}

func (s *SyncMapStore[K, V]) Close() error {
	s.m.Clear()
	return nil
}
