package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"course-purchase/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScriptURL = "https://cdn.example.test/checkout.js"

type fakeHost struct {
	mu      sync.Mutex
	tags    []ScriptTag
	inserts atomic.Int32
	release chan struct{}
	failN   int32
}

func (h *fakeHost) HasScript(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, tag := range h.tags {
		if tag.ID == id {
			return true
		}
	}
	return false
}

func (h *fakeHost) InsertScript(ctx context.Context, tag ScriptTag) error {
	n := h.inserts.Add(1)
	if h.release != nil {
		select {
		case <-h.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= h.failN {
		return errors.New("network error")
	}

	h.mu.Lock()
	h.tags = append(h.tags, tag)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) tagCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tags)
}

func runConcurrently(n int, fn func() error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn()
		}(i)
	}
	wg.Wait()
	return errs
}

func TestEnsureLoaded_ConcurrentCallsInsertOnce(t *testing.T) {
	host := &fakeHost{release: make(chan struct{})}
	loader := NewGatewayScriptLoader(host, testScriptURL, time.Second)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(host.release)
	}()

	errs := runConcurrently(20, func() error {
		return loader.EnsureLoaded(context.Background())
	})

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), host.inserts.Load())
	assert.Equal(t, 1, host.tagCount())
	assert.Equal(t, ScriptLoaded, loader.State())

	require.NoError(t, loader.EnsureLoaded(context.Background()))
	assert.Equal(t, int32(1), host.inserts.Load())
}

func TestEnsureLoaded_ConcurrentFailuresAllReject(t *testing.T) {
	host := &fakeHost{release: make(chan struct{}), failN: 1000}
	loader := NewGatewayScriptLoader(host, testScriptURL, time.Second)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(host.release)
	}()

	errs := runConcurrently(10, func() error {
		return loader.EnsureLoaded(context.Background())
	})

	for _, err := range errs {
		var loadErr *model.ScriptLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, testScriptURL, loadErr.URL)
	}
	assert.Equal(t, 0, host.tagCount())
	assert.Equal(t, ScriptLoadFailed, loader.State())
}

func TestEnsureLoaded_RetriesAfterFailure(t *testing.T) {
	host := &fakeHost{failN: 1}
	loader := NewGatewayScriptLoader(host, testScriptURL, time.Second)

	err := loader.EnsureLoaded(context.Background())
	var loadErr *model.ScriptLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ScriptLoadFailed, loader.State())
	assert.Equal(t, 0, host.tagCount())

	require.NoError(t, loader.EnsureLoaded(context.Background()))
	assert.Equal(t, ScriptLoaded, loader.State())
	assert.Equal(t, int32(2), host.inserts.Load())
	assert.Equal(t, 1, host.tagCount())
}

func TestEnsureLoaded_ReusesExistingTag(t *testing.T) {
	host := &fakeHost{tags: []ScriptTag{{ID: CheckoutScriptID, Src: testScriptURL}}}
	loader := NewGatewayScriptLoader(host, testScriptURL, time.Second)

	require.NoError(t, loader.EnsureLoaded(context.Background()))
	assert.Equal(t, int32(0), host.inserts.Load())
	assert.Equal(t, ScriptLoaded, loader.State())
}

func TestEnsureLoaded_CallerCancelDoesNotAbortLoad(t *testing.T) {
	host := &fakeHost{release: make(chan struct{})}
	loader := NewGatewayScriptLoader(host, testScriptURL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loader.EnsureLoaded(ctx)
	var loadErr *model.ScriptLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, context.Canceled)

	close(host.release)
	require.Eventually(t, func() bool {
		return loader.State() == ScriptLoaded
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, host.tagCount())
}

func TestEnsureLoaded_TimesOut(t *testing.T) {
	host := &fakeHost{release: make(chan struct{})}
	defer close(host.release)
	loader := NewGatewayScriptLoader(host, testScriptURL, 20*time.Millisecond)

	err := loader.EnsureLoaded(context.Background())
	var loadErr *model.ScriptLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ScriptLoadFailed, loader.State())
}
