package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(id interface{}, fields map[string]interface{}) map[string]interface{} {
	e := map[string]interface{}{"id": id}
	for k, v := range fields {
		e[k] = v
	}
	return e
}

func TestApplyCreatedInsertsOnce(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "First"}))
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "Echo"}))

	assert.Equal(t, 1, col.Len())
	got, ok := col.Get(1)
	require.True(t, ok)
	// The optimistic local copy wins over the echoed create.
	assert.Equal(t, "First", got["title"])
}

func TestApplyCreatedIgnoresMissingID(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(map[string]interface{}{"title": "No id"})
	col.ApplyCreated(entity(nil, nil))
	col.ApplyCreated(entity("", nil))
	assert.Equal(t, 0, col.Len())
}

func TestApplyUpdatedMergesFields(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "Task", "status": "TODO"}))

	col.ApplyUpdated(entity(1, map[string]interface{}{"status": "DONE"}))

	got, ok := col.Get(1)
	require.True(t, ok)
	assert.Equal(t, "DONE", got["status"])
	assert.Equal(t, "Task", got["title"])
}

func TestApplyUpdatedUnknownEntityIsNoop(t *testing.T) {
	col := NewCollection()
	col.ApplyUpdated(entity(9, map[string]interface{}{"status": "DONE"}))
	assert.Equal(t, 0, col.Len())
}

func TestApplyUpdatedIsIdempotent(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(1, map[string]interface{}{"status": "TODO"}))
	update := entity(1, map[string]interface{}{"status": "IN_PROGRESS"})

	col.ApplyUpdated(update)
	before, _ := col.Get(1)
	col.ApplyUpdated(update)
	after, _ := col.Get(1)

	assert.Equal(t, before, after)
}

func TestApplyDeletedRemovesEntity(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "A"}))
	col.ApplyCreated(entity(2, map[string]interface{}{"title": "B"}))

	col.ApplyDeleted(1)
	col.ApplyDeleted(1)
	col.ApplyDeleted(99)

	assert.Equal(t, 1, col.Len())
	_, ok := col.Get(1)
	assert.False(t, ok)
	_, ok = col.Get(2)
	assert.True(t, ok)
}

func TestNumericAndStringIDsConverge(t *testing.T) {
	col := NewCollection()
	// Create arrives decoded from JSON, so the id is a float64.
	col.ApplyCreated(entity(float64(5), map[string]interface{}{"title": "Task"}))

	// Later lookups and deletions may use native ints or strings.
	_, ok := col.Get(5)
	assert.True(t, ok)
	_, ok = col.Get("5")
	assert.True(t, ok)

	col.ApplyUpdated(entity("5", map[string]interface{}{"title": "Renamed"}))
	got, _ := col.Get(5)
	assert.Equal(t, "Renamed", got["title"])

	col.ApplyDeleted("5")
	assert.Equal(t, 0, col.Len())
}

func TestListPreservesInsertionOrder(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(3, map[string]interface{}{"title": "c"}))
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "a"}))
	col.ApplyCreated(entity(2, map[string]interface{}{"title": "b"}))
	col.ApplyDeleted(1)

	list := col.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0]["title"])
	assert.Equal(t, "b", list[1]["title"])
}

func TestGetReturnsCopy(t *testing.T) {
	col := NewCollection()
	col.ApplyCreated(entity(1, map[string]interface{}{"title": "Task"}))

	got, _ := col.Get(1)
	got["title"] = "mutated"

	again, _ := col.Get(1)
	assert.Equal(t, "Task", again["title"])
}

// fakeSub records handlers the way the realtime client does, so bound
// collections can be driven with raw frames.
type fakeSub struct {
	handlers map[string][]func(json.RawMessage)
}

func newFakeSub() *fakeSub {
	return &fakeSub{handlers: make(map[string][]func(json.RawMessage))}
}

func (f *fakeSub) On(event string, handler func(data json.RawMessage)) {
	f.handlers[event] = append(f.handlers[event], handler)
}

func (f *fakeSub) emit(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	for _, h := range f.handlers[event] {
		h(data)
	}
}

func TestBindEntityAppliesLifecycle(t *testing.T) {
	sub := newFakeSub()
	col := NewCollection()
	BindEntity(sub, "task", col, "taskId")

	sub.emit(t, "task:created", map[string]interface{}{"id": 1, "title": "Write docs", "status": "TODO"})
	sub.emit(t, "task:updated", map[string]interface{}{"id": 1, "status": "DONE"})

	got, ok := col.Get(1)
	require.True(t, ok)
	assert.Equal(t, "DONE", got["status"])
	assert.Equal(t, "Write docs", got["title"])

	sub.emit(t, "task:deleted", map[string]interface{}{"taskId": 1, "workspaceId": 10})
	assert.Equal(t, 0, col.Len())
}

func TestBindEntityEchoedCreateDoesNotDuplicate(t *testing.T) {
	sub := newFakeSub()
	col := NewCollection()
	BindEntity(sub, "project", col, "projectId")

	// Acting client appended optimistically, then its own event echoes back.
	col.ApplyCreated(entity(float64(4), map[string]interface{}{"name": "Platform"}))
	sub.emit(t, "project:created", map[string]interface{}{"id": 4, "name": "Platform"})

	assert.Equal(t, 1, col.Len())
}

func TestBindEntityMalformedFrameIsIgnored(t *testing.T) {
	sub := newFakeSub()
	col := NewCollection()
	BindEntity(sub, "task", col, "taskId")

	for _, h := range sub.handlers["task:created"] {
		h(json.RawMessage(`"not an object"`))
	}
	assert.Equal(t, 0, col.Len())
}
