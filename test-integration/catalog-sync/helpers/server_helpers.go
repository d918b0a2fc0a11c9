package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	"github.com/webspark/catalog-sync/internal/app"
	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/service"
	"github.com/webspark/catalog-sync/internal/status"
)

// ServerTestHelper manages the sync service lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *app.SyncApp
}

// NewServerTestHelper creates a helper for the configuration at configPath,
// listening on a free local port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// StartServer builds the application and starts it in the background
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	syncApp, err := app.NewSyncApp(s.ctx, app.WithConfig(cfg), app.WithAddress(s.address))
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = syncApp

	go func() {
		if err := syncApp.Start(); err != nil {
			// The test fails when it cannot connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()
	return nil
}

// StopServer gracefully stops the service
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// App returns the running application
func (s *ServerTestHelper) App() *app.SyncApp {
	return s.app
}

// WaitForServerReady waits until /readiness answers 200
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 200*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// TriggerSync makes a POST request to /v1/sync
func (s *ServerTestHelper) TriggerSync() (*http.Response, error) {
	return s.httpClient.Post(s.baseURL+"/v1/sync", "application/json", bytes.NewReader(nil))
}

// GetStatus makes a GET request to /v1/status and decodes the body
func (s *ServerTestHelper) GetStatus() (*status.SyncStatus, error) {
	var st status.SyncStatus
	if err := s.getJSON("/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetProducts makes a GET request to /v1/products with the given query
func (s *ServerTestHelper) GetProducts(query string) (*service.ProductPage, error) {
	path := "/v1/products"
	if query != "" {
		path += "?" + query
	}
	var page service.ProductPage
	if err := s.getJSON(path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct makes a GET request to /v1/products/{sku}
func (s *ServerTestHelper) GetProduct(sku string) (*http.Response, error) {
	return s.httpClient.Get(fmt.Sprintf("%s/v1/products/%s", s.baseURL, sku))
}

// WaitForPhase waits until the persisted status reaches phase
func (s *ServerTestHelper) WaitForPhase(phase status.SyncPhase, timeout time.Duration) *status.SyncStatus {
	var last *status.SyncStatus
	gomega.Eventually(func() (status.SyncPhase, error) {
		st, err := s.GetStatus()
		if err != nil {
			return "", err
		}
		last = st
		return st.Phase, nil
	}, timeout, 100*time.Millisecond).Should(gomega.Equal(phase))
	return last
}

// WaitForProducts waits until the catalog holds count products and returns them
func (s *ServerTestHelper) WaitForProducts(count int, timeout time.Duration) []catalog.Entry {
	var products []catalog.Entry
	gomega.Eventually(func() ([]catalog.Entry, error) {
		page, err := s.GetProducts("limit=1000")
		if err != nil {
			return nil, err
		}
		products = page.Products
		return products, nil
	}, timeout, 100*time.Millisecond).Should(gomega.HaveLen(count))
	return products
}

func (s *ServerTestHelper) getJSON(path string, v any) error {
	resp, err := s.httpClient.Get(s.baseURL + path)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// ConfigOptions holds the variable parts of a test configuration
type ConfigOptions struct {
	FeedURL         string
	MaxRecords      int
	IntervalMinutes int
	SKUInclude      []string
	StockExclude    []string
}

// WriteConfigYAML writes a file-storage configuration under dir and returns its path
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	content := fmt.Sprintf("feed:\n  url: %s\n", opts.FeedURL)
	if opts.MaxRecords > 0 {
		content += fmt.Sprintf("  maxRecords: %d\n", opts.MaxRecords)
	}
	if len(opts.SKUInclude) > 0 || len(opts.StockExclude) > 0 {
		content += "  filter:\n"
		if len(opts.SKUInclude) > 0 {
			content += "    sku:\n      include:\n"
			for _, p := range opts.SKUInclude {
				content += fmt.Sprintf("        - %q\n", p)
			}
		}
		if len(opts.StockExclude) > 0 {
			content += "    stock:\n      exclude:\n"
			for _, s := range opts.StockExclude {
				content += fmt.Sprintf("        - %s\n", s)
			}
		}
	}

	interval := opts.IntervalMinutes
	if interval == 0 {
		interval = 60
	}
	content += fmt.Sprintf("sync:\n  jobName: integration\n  intervalMinutes: %d\n  pollInterval: 1s\n", interval)
	content += fmt.Sprintf("fileStorage:\n  baseDir: %s\n", filepath.Join(dir, "data"))

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(content), 0600)).To(gomega.Succeed())
	return path
}
