package wallet

import (
	"context"
	"encoding/json"
	"sync"
)

// fakeProvider answers requests from per-method handlers and records calls.
type fakeProvider struct {
	mu       sync.Mutex
	handlers map[string]func(params []any) (json.RawMessage, error)
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: make(map[string]func([]any) (json.RawMessage, error))}
}

func (f *fakeProvider) on(method string, fn func(params []any) (json.RawMessage, error)) *fakeProvider {
	f.handlers[method] = fn
	return f
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	fn := f.handlers[method]
	f.mu.Unlock()
	if fn == nil {
		return nil, errMethodMissing(method)
	}
	return fn(params)
}

func (f *fakeProvider) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func result(v string) func([]any) (json.RawMessage, error) {
	return func([]any) (json.RawMessage, error) { return json.RawMessage(v), nil }
}

func fail(err error) func([]any) (json.RawMessage, error) {
	return func([]any) (json.RawMessage, error) { return nil, err }
}
