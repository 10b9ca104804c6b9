package update

import (
	"context"
	"strings"
	"sync"
)

// fakeRunner records invocations. Commands without a configured error succeed
// with the configured output (empty by default).
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	out := f.outputs[key]
	if err, ok := f.errs[key]; ok {
		return []byte(out), err
	}
	return []byte(out), nil
}

func (f *fakeRunner) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}
