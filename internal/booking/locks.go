package booking

import "sync"

// keyedMutex 按订单 ID 的细粒度互斥锁：
// 同一订单的并发流转必须串行，不同订单互不影响。
// 带引用计数，锁空闲时回收条目，避免 map 无限增长。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// Lock 获取 key 对应的锁。
func (km *keyedMutex) Lock(key string) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &lockEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
}

// Unlock 释放 key 对应的锁。
func (km *keyedMutex) Unlock(key string) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if ok {
		e.refs--
		if e.refs <= 0 {
			delete(km.locks, key)
		}
	}
	km.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
