package carriers

import (
	"fmt"
	"sync"
	"time"
)

// FetchStrategy selects how a carrier's raw data is acquired.
type FetchStrategy string

const (
	StrategyAPI      FetchStrategy = "api"
	StrategyScraping FetchStrategy = "scraping"
	StrategyHeadless FetchStrategy = "headless"
)

// CarrierConfig holds per-carrier construction options. The strategy is an
// explicit configuration value, never read from the environment at call time.
type CarrierConfig struct {
	// Preferred fetch strategy. Empty means the carrier's default.
	Strategy FetchStrategy

	// HTTP options for API and scraping clients.
	UserAgent string
	Timeout   time.Duration

	// BaseURL overrides the carrier's production endpoint, mainly for tests.
	BaseURL string
}

// ClientFactory builds carrier clients. Headless clients share one browser
// pool across carriers.
type ClientFactory struct {
	configs  map[Carrier]*CarrierConfig
	headless *HeadlessOptions

	// Guards the lazily created pool; CreateClient runs concurrently from
	// interactive requests and the background refresher.
	poolMu sync.Mutex
	pool   *BrowserPool
}

// NewClientFactory creates a factory with the given headless options. The
// browser pool is created lazily on first headless client.
func NewClientFactory(headless *HeadlessOptions) *ClientFactory {
	if headless == nil {
		headless = DefaultHeadlessOptions()
	}
	return &ClientFactory{
		configs:  make(map[Carrier]*CarrierConfig),
		headless: headless,
	}
}

// SetCarrierConfig sets construction options for one carrier.
func (f *ClientFactory) SetCarrierConfig(carrier Carrier, config *CarrierConfig) {
	f.configs[carrier] = config
}

// CreateClient builds the client for a carrier and reports the strategy it
// ended up with.
func (f *ClientFactory) CreateClient(carrier Carrier) (Client, FetchStrategy, error) {
	if !carrier.IsValid() {
		return nil, "", fmt.Errorf("unsupported carrier: %s", carrier)
	}

	config := f.configs[carrier]
	if config == nil {
		config = &CarrierConfig{}
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	strategy := config.Strategy
	if strategy == "" {
		strategy = defaultStrategy(carrier)
	}

	switch carrier {
	case ViaCargo:
		if strategy != StrategyHeadless {
			return nil, "", fmt.Errorf("via-cargo requires the headless strategy")
		}
		return NewViaCargoClient(f.browserPool(), f.headless, config.BaseURL), StrategyHeadless, nil

	case Andreani:
		if strategy != StrategyHeadless {
			return nil, "", fmt.Errorf("andreani requires the headless strategy")
		}
		return NewAndreaniClient(f.browserPool(), f.headless, config.BaseURL), StrategyHeadless, nil

	case OCA:
		return NewOCAClient(userAgent, config.BaseURL, timeout), StrategyScraping, nil

	case BusPack:
		return NewBusPackClient(userAgent, config.BaseURL, timeout), StrategyScraping, nil

	case CorreoArgentino:
		if strategy == StrategyScraping {
			return NewCorreoArgentinoScrapingClient(userAgent, config.BaseURL, timeout), StrategyScraping, nil
		}
		return NewCorreoArgentinoClient(userAgent, config.BaseURL, timeout), StrategyAPI, nil
	}
	return nil, "", fmt.Errorf("unsupported carrier: %s", carrier)
}

// RequiresHeadless reports whether a carrier's upstream needs a rendered
// page instead of a plain HTTP response.
func RequiresHeadless(carrier Carrier) bool {
	return carrier == ViaCargo || carrier == Andreani
}

func defaultStrategy(carrier Carrier) FetchStrategy {
	switch carrier {
	case ViaCargo, Andreani:
		return StrategyHeadless
	case CorreoArgentino:
		return StrategyAPI
	default:
		return StrategyScraping
	}
}

func (f *ClientFactory) browserPool() *BrowserPool {
	f.poolMu.Lock()
	defer f.poolMu.Unlock()
	if f.pool == nil {
		f.pool = NewBrowserPool(DefaultBrowserPoolConfig(), f.headless)
	}
	return f.pool
}

// Close shuts down the shared browser pool, if one was created.
func (f *ClientFactory) Close() {
	f.poolMu.Lock()
	defer f.poolMu.Unlock()
	if f.pool != nil {
		f.pool.Close()
		f.pool = nil
	}
}
