// Package status exposes a live summary of what a process's runners and
// queues are doing, addressable as a small item tree nested through
// context.Context exactly the way request-scoped values nest, and served
// as JSON so tooling can consume it directly.
package status

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"
)

var startTime = time.Now()

type item interface {
	addSubItem(string, item)
	delSubItem(string)
	Eval(ctx context.Context) any
	Items() map[string]item
}

type baseItem struct {
	mu    sync.RWMutex
	items map[string]item
}

func (i *baseItem) addSubItem(title string, sub item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[title] = sub
}

func (i *baseItem) delSubItem(title string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.items, title)
}

func (i *baseItem) Items() map[string]item {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return maps.Clone(i.items)
}

// simpleItem reports a plain value set by calling its setter.
type simpleItem struct {
	baseItem
	mu    sync.RWMutex
	value any
}

func (i *simpleItem) setValue(v any) {
	i.mu.Lock()
	i.value = v
	i.mu.Unlock()
}

func (i *simpleItem) Eval(context.Context) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.value
}

// ItemCallback produces an item's current value on demand.
type ItemCallback func(context.Context) (any, error)

type callbackItem struct {
	baseItem
	cb ItemCallback
}

func (i *callbackItem) Eval(ctx context.Context) any {
	v, err := i.cb(ctx)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return v
}

type itemCtxKey struct{}

var rootItem = &simpleItem{baseItem: baseItem{items: map[string]item{}}}

func parentItem(ctx context.Context) item {
	if v := ctx.Value(itemCtxKey{}); v != nil {
		return v.(item)
	}
	return rootItem
}

// AddItem registers a callback-driven status item under parent, returning a
// context to pass to nested AddItem/AddSimpleItem calls and a cleanup
// function removing the item.
func AddItem(parent context.Context, title string, cb ItemCallback) (ctx context.Context, done func()) {
	if cb == nil {
		cb = func(context.Context) (any, error) { return nil, nil }
	}
	it := &callbackItem{baseItem: baseItem{items: map[string]item{}}, cb: cb}
	p := parentItem(parent)
	p.addSubItem(title, it)
	return context.WithValue(parent, itemCtxKey{}, it), func() { p.delSubItem(title) }
}

// AddSimpleItem registers a status item whose value is pushed by calling
// setValue, rather than pulled via a callback.
func AddSimpleItem(parent context.Context, title string) (ctx context.Context, setValue func(any), done func()) {
	it := &simpleItem{baseItem: baseItem{items: map[string]item{}}, value: "unknown"}
	p := parentItem(parent)
	p.addSubItem(title, it)
	return context.WithValue(parent, itemCtxKey{}, it), it.setValue, func() { p.delSubItem(title) }
}

func evalTree(ctx context.Context, it item) map[string]any {
	out := map[string]any{"value": it.Eval(ctx)}
	children := map[string]any{}
	for title, sub := range it.Items() {
		children[title] = evalTree(ctx, sub)
	}
	if len(children) > 0 {
		out["items"] = children
	}
	return out
}

type page struct {
	PID          int            `json:"pid"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	StartedAt    string         `json:"started_at"`
	Uptime       string         `json:"uptime"`
	Items        map[string]any `json:"items"`
}

// Handle serves the status tree as JSON.
func Handle(w http.ResponseWriter, r *http.Request) {
	items, _ := evalTree(r.Context(), rootItem)["items"].(map[string]any)
	p := page{
		PID:          os.Getpid(),
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		StartedAt:    startTime.Format(time.RFC3339),
		Uptime:       time.Since(startTime).String(),
		Items:        items,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}
