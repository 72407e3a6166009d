package index

import "sync"

// Index maps a key to an entity id.
type Index[K comparable] struct {
	mu   sync.RWMutex
	data map[K]int
}

func NewIndex[K comparable](initialCapacity ...int) *Index[K] {
	var cap0 int
	if len(initialCapacity) > 0 && initialCapacity[0] > 0 {
		cap0 = initialCapacity[0]
	}
	return &Index[K]{data: make(map[K]int, cap0)}
}

func (idx *Index[K]) Add(key K, id int) {
	idx.mu.Lock()
	idx.data[key] = id
	idx.mu.Unlock()
}

func (idx *Index[K]) Get(key K) (id int, ok bool) {
	idx.mu.RLock()
	id, ok = idx.data[key]
	idx.mu.RUnlock()
	return
}

func (idx *Index[K]) Remove(key K) {
	idx.mu.Lock()
	delete(idx.data, key)
	idx.mu.Unlock()
}

func (idx *Index[K]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.data)
}

func (idx *Index[K]) Clear() {
	idx.mu.Lock()
	idx.data = make(map[K]int)
	idx.mu.Unlock()
}
