package carriers

import (
	"sync"
	"testing"
	"time"
)

func TestCreateClient_DefaultStrategies(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()

	tests := []struct {
		carrier Carrier
		want    FetchStrategy
	}{
		{ViaCargo, StrategyHeadless},
		{Andreani, StrategyHeadless},
		{OCA, StrategyScraping},
		{BusPack, StrategyScraping},
		{CorreoArgentino, StrategyAPI},
	}
	for _, tt := range tests {
		t.Run(string(tt.carrier), func(t *testing.T) {
			client, strategy, err := factory.CreateClient(tt.carrier)
			if err != nil {
				t.Fatalf("CreateClient(%s) failed: %v", tt.carrier, err)
			}
			if strategy != tt.want {
				t.Errorf("Expected strategy %s, got %s", tt.want, strategy)
			}
			if client.CarrierName() != tt.carrier {
				t.Errorf("Expected carrier %s, got %s", tt.carrier, client.CarrierName())
			}
		})
	}
}

func TestCreateClient_CorreoScrapingFallback(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()
	factory.SetCarrierConfig(CorreoArgentino, &CarrierConfig{Strategy: StrategyScraping})

	client, strategy, err := factory.CreateClient(CorreoArgentino)
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if strategy != StrategyScraping {
		t.Errorf("Expected scraping strategy, got %s", strategy)
	}
	if _, ok := client.(*CorreoArgentinoScrapingClient); !ok {
		t.Errorf("Expected legacy scraping client, got %T", client)
	}
}

func TestCreateClient_HeadlessCarriersRejectOtherStrategies(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()
	factory.SetCarrierConfig(ViaCargo, &CarrierConfig{Strategy: StrategyScraping})
	factory.SetCarrierConfig(Andreani, &CarrierConfig{Strategy: StrategyAPI})

	if _, _, err := factory.CreateClient(ViaCargo); err == nil {
		t.Error("Expected error for non-headless via-cargo")
	}
	if _, _, err := factory.CreateClient(Andreani); err == nil {
		t.Error("Expected error for non-headless andreani")
	}
}

func TestCreateClient_ConcurrentHeadlessShareOnePool(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()

	const n = 8
	pools := make([]*BrowserPool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			carrier := ViaCargo
			if i%2 == 1 {
				carrier = Andreani
			}
			client, _, err := factory.CreateClient(carrier)
			if err != nil {
				t.Errorf("CreateClient(%s) failed: %v", carrier, err)
				return
			}
			switch c := client.(type) {
			case *ViaCargoClient:
				pools[i] = c.fetcher.pool
			case *AndreaniClient:
				pools[i] = c.fetcher.pool
			}
		}(i)
	}
	wg.Wait()

	if pools[0] == nil {
		t.Fatal("Expected a browser pool to be created")
	}
	for i := 1; i < n; i++ {
		if pools[i] != pools[0] {
			t.Fatalf("Expected all clients to share one browser pool, index %d got a different instance", i)
		}
	}
}

func TestCreateClient_UnknownCarrier(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()

	if _, _, err := factory.CreateClient(Carrier("dhl")); err == nil {
		t.Error("Expected error for unsupported carrier")
	}
}

func TestCreateClient_ConfigOverrides(t *testing.T) {
	factory := NewClientFactory(nil)
	defer factory.Close()
	factory.SetCarrierConfig(OCA, &CarrierConfig{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
		BaseURL:   "http://127.0.0.1:9/oca",
	})

	client, _, err := factory.CreateClient(OCA)
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	oca, ok := client.(*OCAClient)
	if !ok {
		t.Fatalf("Expected *OCAClient, got %T", client)
	}
	if oca.baseURL != "http://127.0.0.1:9/oca" {
		t.Errorf("Expected base URL override, got %q", oca.baseURL)
	}
}

func TestRequiresHeadless(t *testing.T) {
	for _, c := range AllCarriers() {
		want := c == ViaCargo || c == Andreani
		if RequiresHeadless(c) != want {
			t.Errorf("RequiresHeadless(%s) = %v, want %v", c, RequiresHeadless(c), want)
		}
	}
}

func TestRegistry(t *testing.T) {
	info, ok := Info(BusPack)
	if !ok {
		t.Fatal("Expected buspack metadata")
	}
	if !info.Composite {
		t.Error("Expected buspack to be composite")
	}
	if len(info.Placeholder) != 3 {
		t.Errorf("Expected 3 placeholders, got %d", len(info.Placeholder))
	}

	all := AllInfo()
	if len(all) != len(AllCarriers()) {
		t.Fatalf("Expected %d carriers, got %d", len(AllCarriers()), len(all))
	}
	if all[0].ID != ViaCargo {
		t.Errorf("Expected stable display order, got %s first", all[0].ID)
	}

	if _, ok := Info(Carrier("dhl")); ok {
		t.Error("Expected unknown carrier to be absent")
	}
}
