package carriers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserPoolConfig bounds the chrome instances used by headless carriers.
type BrowserPoolConfig struct {
	MaxBrowsers     int
	IdleTimeout     time.Duration
	MaxIdleBrowsers int
}

// DefaultBrowserPoolConfig returns sensible defaults for the browser pool.
func DefaultBrowserPoolConfig() *BrowserPoolConfig {
	return &BrowserPoolConfig{
		MaxBrowsers:     3,
		IdleTimeout:     5 * time.Minute,
		MaxIdleBrowsers: 1,
	}
}

type browserInstance struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	lastUsed    time.Time
	inUse       bool
}

// BrowserPool manages a bounded set of reusable chrome instances.
type BrowserPool struct {
	config      *BrowserPoolConfig
	options     *HeadlessOptions
	instances   []*browserInstance
	mu          sync.Mutex
	closed      bool
	cleanupDone chan struct{}
}

// NewBrowserPool creates a browser pool with the given configuration.
func NewBrowserPool(config *BrowserPoolConfig, options *HeadlessOptions) *BrowserPool {
	if config == nil {
		config = DefaultBrowserPoolConfig()
	}
	if options == nil {
		options = DefaultHeadlessOptions()
	}

	pool := &BrowserPool{
		config:      config,
		options:     options,
		instances:   make([]*browserInstance, 0, config.MaxBrowsers),
		cleanupDone: make(chan struct{}),
	}
	go pool.cleanupLoop()
	return pool
}

// ExecuteWithBrowser runs fn against a pooled browser context.
func (p *BrowserPool) ExecuteWithBrowser(ctx context.Context, fn func(context.Context) error) error {
	instance, err := p.get(ctx)
	if err != nil {
		return err
	}
	defer p.put(instance)

	// The instance context carries the browser; the caller context carries
	// the deadline.
	runCtx, cancel := context.WithCancel(instance.ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (p *BrowserPool) get(ctx context.Context) (*browserInstance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("browser pool is closed")
	}

	for _, instance := range p.instances {
		if !instance.inUse {
			instance.inUse = true
			instance.lastUsed = time.Now()
			return instance, nil
		}
	}

	if len(p.instances) < p.config.MaxBrowsers {
		instance, err := p.createInstance()
		if err != nil {
			return nil, fmt.Errorf("failed to create browser instance: %w", err)
		}
		instance.inUse = true
		instance.lastUsed = time.Now()
		p.instances = append(p.instances, instance)
		return instance, nil
	}

	return nil, fmt.Errorf("browser pool exhausted: %d instances in use", len(p.instances))
}

func (p *BrowserPool) put(instance *browserInstance) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.cleanupInstance(instance)
		return
	}
	instance.inUse = false
	instance.lastUsed = time.Now()
}

// Close shuts down all browser instances in the pool.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, instance := range p.instances {
		p.cleanupInstance(instance)
	}
	p.instances = nil
	close(p.cleanupDone)
	return nil
}

func (p *BrowserPool) createInstance() (*browserInstance, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), p.buildAllocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return &browserInstance{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		lastUsed:    time.Now(),
	}, nil
}

func (p *BrowserPool) cleanupInstance(instance *browserInstance) {
	if instance.cancel != nil {
		instance.cancel()
	}
	if instance.allocCancel != nil {
		instance.allocCancel()
	}
}

func (p *BrowserPool) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(p.options.UserAgent),
		chromedp.WindowSize(int(p.options.ViewportWidth), int(p.options.ViewportHeight)),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	}
	if p.options.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if p.options.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	opts = append(opts,
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	return opts
}

func (p *BrowserPool) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanupIdleInstances()
		case <-p.cleanupDone:
			return
		}
	}
}

func (p *BrowserPool) cleanupIdleInstances() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	now := time.Now()
	idleCount := 0
	kept := make([]*browserInstance, 0, len(p.instances))
	for _, instance := range p.instances {
		if instance.inUse {
			kept = append(kept, instance)
			continue
		}
		idleCount++
		if now.Sub(instance.lastUsed) < p.config.IdleTimeout && idleCount <= p.config.MaxIdleBrowsers {
			kept = append(kept, instance)
		} else {
			p.cleanupInstance(instance)
		}
	}
	p.instances = kept
}

// ValidateChromeAvailable checks that a Chrome/Chromium binary can be driven.
func ValidateChromeAvailable() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	testCtx, testCancel := context.WithTimeout(ctx, 10*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("Chrome/Chromium not available or not working: %w", err)
	}
	return nil
}
