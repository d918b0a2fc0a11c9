package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	storagemocks "github.com/webspark/catalog-sync/internal/app/storage/mocks"
	"github.com/webspark/catalog-sync/internal/config"
	syncmocks "github.com/webspark/catalog-sync/internal/sync/mocks"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		FileStorage: &config.FileStorageConfig{BaseDir: t.TempDir()},
		Sync:        config.SyncPolicyConfig{JobName: "test-job"},
	}
}

func TestBaseConfig_Defaults(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(WithConfig(testConfig(t)))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, built.address)
	assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
	assert.Nil(t, built.middlewares)
	assert.False(t, built.migrate)
}

func TestBaseConfig_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := baseConfig(WithAddress(":9090"))
	require.Error(t, err)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port_only", addr: ":9090"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "ipv4", addr: "127.0.0.1:0"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing_port", addr: ":", wantErr: true},
		{name: "no_colon", addr: "8080", wantErr: true},
		{name: "bad_host", addr: "not-an-ip:8080", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &syncAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestNewSyncApp_FileStorage(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	app, err := NewSyncApp(context.Background(),
		WithConfig(testConfig(t)),
		WithSyncManager(syncmocks.NewMockManager(ctrl)),
		WithAddress("127.0.0.1:0"),
	)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	components := app.Components()
	require.NotNil(t, components.SyncCoordinator)
	require.NotNil(t, components.SyncService)
	require.NotNil(t, components.Catalog)
	require.NotNil(t, components.Binding)
	assert.Equal(t, "test-job", components.Binding.Name())

	rr := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/products", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"products":[],"count":0}`, rr.Body.String())
}

func TestNewSyncApp_CleansUpOnError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	factory := storagemocks.NewMockFactory(ctrl)
	factory.EXPECT().CreateCatalog(gomock.Any()).Return(nil, errors.New("snapshot unreadable"))
	factory.EXPECT().Cleanup()

	_, err := NewSyncApp(context.Background(),
		WithConfig(testConfig(t)),
		WithStorageFactory(factory),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot unreadable")
}
