// Package store keeps local cached views consistent with server state by
// applying relayed domain mutation events. Merges are idempotent and never
// trigger I/O, so re-delivered or echoed events are harmless.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Collection is a local cached view of one entity type, keyed by identifier.
// Entities are JSON-shaped objects as received off the wire.
type Collection struct {
	mu    sync.RWMutex
	items map[string]map[string]interface{}
	order []string
}

func NewCollection() *Collection {
	return &Collection{items: make(map[string]map[string]interface{})}
}

// ApplyCreated inserts the entity only if no entity with the same identifier
// is already present. Guards against the acting client receiving the echo of
// an entity it already appended optimistically.
func (c *Collection) ApplyCreated(entity map[string]interface{}) {
	key, ok := entityKey(entity["id"])
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; exists {
		return
	}
	c.items[key] = cloneEntity(entity)
	c.order = append(c.order, key)
}

// ApplyUpdated shallow-merges the entity's fields over the local entity with
// the same identifier. No-op when the entity is not cached locally.
func (c *Collection) ApplyUpdated(entity map[string]interface{}) {
	key, ok := entityKey(entity["id"])
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	local, exists := c.items[key]
	if !exists {
		return
	}
	for field, value := range entity {
		local[field] = value
	}
}

// ApplyDeleted removes the entity with the given identifier. No-op if absent.
func (c *Collection) ApplyDeleted(id interface{}) {
	key, ok := entityKey(id)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the cached entity.
func (c *Collection) Get(id interface{}) (map[string]interface{}, bool) {
	key, ok := entityKey(id)
	if !ok {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entity, exists := c.items[key]
	if !exists {
		return nil, false
	}
	return cloneEntity(entity), true
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// List returns the cached entities in insertion order.
func (c *Collection) List() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]map[string]interface{}, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, cloneEntity(c.items[key]))
	}
	return out
}

// Subscriber is the event registration surface of the realtime client.
type Subscriber interface {
	On(event string, handler func(data json.RawMessage))
}

// BindEntity wires the created/updated/deleted events for one entity into a
// collection. idField names the identifier field of the deletion payload
// (e.g. "taskId"), since deletions carry a bare id rather than the entity.
func BindEntity(sub Subscriber, entity string, col *Collection, idField string) {
	sub.On(entity+":created", func(data json.RawMessage) {
		var e map[string]interface{}
		if err := json.Unmarshal(data, &e); err != nil {
			return
		}
		col.ApplyCreated(e)
	})
	sub.On(entity+":updated", func(data json.RawMessage) {
		var e map[string]interface{}
		if err := json.Unmarshal(data, &e); err != nil {
			return
		}
		col.ApplyUpdated(e)
	})
	sub.On(entity+":deleted", func(data json.RawMessage) {
		var e map[string]interface{}
		if err := json.Unmarshal(data, &e); err != nil {
			return
		}
		col.ApplyDeleted(e[idField])
	})
}

// entityKey normalizes an identifier to its canonical string form so that
// the same id merges correctly whether it arrives as a JSON number or string.
func entityKey(id interface{}) (string, bool) {
	switch v := id.(type) {
	case nil:
		return "", false
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	case json.Number:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func cloneEntity(entity map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(entity))
	for k, v := range entity {
		out[k] = v
	}
	return out
}
