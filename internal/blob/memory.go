package blob

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object), now: time.Now}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Put(_ context.Context, obj Object) error {
	if err := validatePut(obj); err != nil {
		return newError("put", "memory", obj.Key, err)
	}
	obj.ContentType = ContentTypeJSON
	obj.Body = append([]byte(nil), obj.Body...)
	obj.Size = int64(len(obj.Body))
	obj.LastModified = m.now()

	m.mu.Lock()
	m.objects[obj.Key] = obj
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Object{}, newError("get", "memory", key, ErrObjectNotFound)
	}
	obj.Body = append([]byte(nil), obj.Body...)
	return obj, nil
}

func (m *Memory) List(_ context.Context, trsID, version string) ([]ObjectInfo, error) {
	prefix := VersionPrefix(trsID, version)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var infos []ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if info, ok := infoFor(key, obj.Size, obj.LastModified); ok {
			infos = append(infos, info)
		}
	}
	sortInfos(infos)
	return infos, nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
