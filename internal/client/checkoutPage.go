package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"course-purchase/internal/config"

	"github.com/avast/retry-go"
)

// CheckoutPage is the ScriptHost behind the checkout HTML page. A script is only
// recorded once its source has been fetched successfully from the CDN.
type CheckoutPage struct {
	httpClient *http.Client
	cfg        *config.Razorpay
	tries      uint
	log        *slog.Logger

	mu   sync.RWMutex
	tags []ScriptTag
}

// NewCheckoutPage always fetches at least once, whatever ScriptLoadTries says.
func NewCheckoutPage(razorpayCfg *config.Razorpay, log *slog.Logger) *CheckoutPage {
	return &CheckoutPage{
		httpClient: newHTTPClient(15 * time.Second),
		cfg:        razorpayCfg,
		tries:      max(razorpayCfg.ScriptLoadTries, 1),
		log:        log,
	}
}

func (p *CheckoutPage) HasScript(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexOf(id) >= 0
}

func (p *CheckoutPage) InsertScript(ctx context.Context, tag ScriptTag) error {
	err := retry.Do(
		func() error {
			return p.fetch(ctx, tag.Src)
		},
		retry.Context(ctx),
		retry.Attempts(p.tries),
		retry.Delay(p.cfg.ScriptLoadDelay),
		retry.MaxDelay(p.cfg.ScriptLoadMaxGap),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= p.tries {
				return
			}
			p.log.Warn("checkout script fetch failed, retrying",
				slog.String("src", tag.Src),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err))
		}),
	)
	if err != nil {
		return fmt.Errorf("fetch checkout script: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(tag.ID) < 0 {
		p.tags = append(p.tags, tag)
	}
	p.log.Info("checkout script loaded", slog.String("id", tag.ID), slog.String("src", tag.Src))
	return nil
}

// Scripts returns the tags the page renders, in insertion order.
func (p *CheckoutPage) Scripts() []ScriptTag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ScriptTag(nil), p.tags...)
}

func (p *CheckoutPage) fetch(ctx context.Context, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (p *CheckoutPage) indexOf(id string) int {
	for i, tag := range p.tags {
		if tag.ID == id {
			return i
		}
	}
	return -1
}
