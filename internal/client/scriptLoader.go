package client

import (
	"context"
	"sync"
	"time"

	"course-purchase/internal/model"

	"golang.org/x/sync/singleflight"
)

// CheckoutScriptID tags the one script element the gateway needs on the page.
const CheckoutScriptID = "razorpay-checkout-js"

type ScriptTag struct {
	ID  string
	Src string
}

// ScriptHost is the page the checkout script lives in. InsertScript returns once the
// script has loaded and must leave no tag behind when it fails.
type ScriptHost interface {
	HasScript(id string) bool
	InsertScript(ctx context.Context, tag ScriptTag) error
}

type LoadState int

const (
	ScriptNotLoaded LoadState = iota
	ScriptLoading
	ScriptLoaded
	ScriptLoadFailed
)

func (s LoadState) String() string {
	switch s {
	case ScriptLoading:
		return "loading"
	case ScriptLoaded:
		return "loaded"
	case ScriptLoadFailed:
		return "load-failed"
	default:
		return "not-loaded"
	}
}

type GatewayScriptLoader interface {
	EnsureLoaded(ctx context.Context) error
	State() LoadState
	ScriptURL() string
}

type scriptLoaderImpl struct {
	host    ScriptHost
	tag     ScriptTag
	timeout time.Duration

	sfg   singleflight.Group
	mu    sync.Mutex
	state LoadState
}

func NewGatewayScriptLoader(host ScriptHost, scriptURL string, timeout time.Duration) GatewayScriptLoader {
	return &scriptLoaderImpl{
		host:    host,
		tag:     ScriptTag{ID: CheckoutScriptID, Src: scriptURL},
		timeout: timeout,
	}
}

// EnsureLoaded shares one in-flight load between all callers. Success is remembered for
// the life of the process; failure is not, so the next call tries again.
func (l *scriptLoaderImpl) EnsureLoaded(ctx context.Context) error {
	if l.State() == ScriptLoaded {
		return nil
	}

	// the load outlives any single caller's context
	loadCtx := context.WithoutCancel(ctx)
	ch := l.sfg.DoChan(l.tag.ID, func() (interface{}, error) {
		return nil, l.load(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &model.ScriptLoadError{URL: l.tag.Src, Err: ctx.Err()}
	}
}

func (l *scriptLoaderImpl) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *scriptLoaderImpl) ScriptURL() string {
	return l.tag.Src
}

func (l *scriptLoaderImpl) load(ctx context.Context) error {
	l.setState(ScriptLoading)

	if l.host.HasScript(l.tag.ID) {
		l.setState(ScriptLoaded)
		return nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.host.InsertScript(ctx, l.tag); err != nil {
		l.setState(ScriptLoadFailed)
		return &model.ScriptLoadError{URL: l.tag.Src, Err: err}
	}

	l.setState(ScriptLoaded)
	return nil
}

func (l *scriptLoaderImpl) setState(state LoadState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}
