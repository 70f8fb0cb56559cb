package webclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/sitelens/internal/logging"
)

// ChromeDPClient renders pages in headless Chrome before returning the DOM.
// Use it for sites whose static HTML carries no usable metadata; it is far
// more expensive than the nethttp backend.
type ChromeDPClient struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	idleAfter   time.Duration
	timeout     time.Duration
	logger      logging.Logger
}

// NewChromeDPClient starts a shared browser allocator. idleAfter is how long
// the network must be quiet before the DOM is considered settled.
func NewChromeDPClient(cfg Config, logger logging.Logger, idleAfter time.Duration, opts ...chromedp.ExecAllocatorOption) (*ChromeDPClient, error) {
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}

	allOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allOpts...)

	componentLogger := logger.With(logging.Field{Key: "component", Value: "webclient-chromedp"})
	componentLogger.Info("created chromedp webclient",
		logging.Field{Key: "idle_after", Value: idleAfter.String()})

	return &ChromeDPClient{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		idleAfter:   idleAfter,
		timeout:     timeout,
		logger:      componentLogger,
	}, nil
}

// waitNetworkIdle signals once no network request has been in flight for
// idleAfter. SPA pages keep loading after the navigation event fires, so the
// DOM is only read after this settles.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timerMu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}
	startTimer()

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	return idleChan
}

// Do navigates to req.URL, waits for the network to go idle and returns the
// rendered outer HTML. Only GET is supported by this backend.
func (cdc *ChromeDPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, fmt.Errorf("chromedp backend supports GET only, got %s", req.Method)
	}

	tabCtx, cancel := chromedp.NewContext(cdc.allocCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, cdc.timeout)
	defer cancelTimeout()

	idle := waitNetworkIdle(tabCtx, cdc.idleAfter)

	var statusCode int
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			if statusCode == 0 {
				statusCode = int(resp.Response.Status)
			}
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
		cdc.logger.Warn("chromedp navigate failed",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-tabCtx.Done():
		return nil, tabCtx.Err()
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("chromedp outer html: %w", err)
	}

	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	return &Response{
		Request:    req,
		Body:       []byte(html),
		Headers:    http.Header{},
		StatusCode: statusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// Get is a convenience method for simple GET requests.
func (cdc *ChromeDPClient) Get(ctx context.Context, url string) (*Response, error) {
	return cdc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (cdc *ChromeDPClient) Close() error {
	cdc.logger.Info("closing chromedp webclient")
	cdc.allocCancel()
	return nil
}
