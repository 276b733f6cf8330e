package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. Used by tests and STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data []byte
	info ObjectInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(key, contentType string, data []byte) ObjectInfo {
	buf := append([]byte(nil), data...)
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(buf)),
		LastModified: time.Now().UTC().Truncate(time.Second),
		ContentType:  contentType,
		ETag:         fmt.Sprintf("%x-%d", len(buf), time.Now().UnixNano()),
	}
	s.mu.Lock()
	s.objects[key] = memObject{data: buf, info: info}
	s.mu.Unlock()
	return info
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
}

func (s *MemoryStore) get(key string) (memObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return memObject{}, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return obj, nil
}

func (s *MemoryStore) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	obj, err := s.get(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return obj.info, nil
}

func (s *MemoryStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) GetObjectRange(ctx context.Context, key string, start, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, err := s.get(key)
	if err != nil {
		return nil, err
	}
	size := int64(len(obj.data))
	if start < 0 || length <= 0 || start+length > size {
		return nil, fmt.Errorf("range %d+%d outside %s (size %d)", start, length, key, size)
	}
	return io.NopCloser(bytes.NewReader(obj.data[start : start+length])), nil
}

func (s *MemoryStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []ObjectInfo
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, obj.info)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
