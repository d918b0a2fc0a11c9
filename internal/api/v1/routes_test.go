package v1_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	v1 "github.com/webspark/catalog-sync/internal/api/v1"
	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/product"
	"github.com/webspark/catalog-sync/internal/service"
	"github.com/webspark/catalog-sync/internal/service/mocks"
	"github.com/webspark/catalog-sync/internal/status"
)

func serve(t *testing.T, svc service.SyncService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	v1.Router(svc).ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		setupMock      func(*mocks.MockSyncService)
		expectedStatus int
	}{
		{
			name: "status_loaded",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().GetStatus(gomock.Any()).Return(&status.SyncStatus{
					Phase:   status.SyncPhaseComplete,
					Message: "Synced 3 of 3 records",
					Counts:  status.Counts{Created: 3},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "status_unreadable",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().GetStatus(gomock.Any()).Return(nil, errors.New("disk on fire"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSyncService(ctrl)
			tt.setupMock(svc)

			rr := serve(t, svc, http.MethodGet, "/status")
			assert.Equal(t, tt.expectedStatus, rr.Code)

			if tt.expectedStatus == http.StatusOK {
				var s status.SyncStatus
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
				assert.Equal(t, status.SyncPhaseComplete, s.Phase)
				assert.Equal(t, 3, s.Counts.Created)
			}
		})
	}
}

func TestTriggerSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		triggerErr     error
		expectedStatus int
	}{
		{name: "accepted", expectedStatus: http.StatusAccepted},
		{name: "conflict", triggerErr: service.ErrSyncInProgress, expectedStatus: http.StatusConflict},
		{name: "failure", triggerErr: errors.New("coordinator stopped"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSyncService(ctrl)
			svc.EXPECT().TriggerSync(gomock.Any()).Return(tt.triggerErr)

			rr := serve(t, svc, http.MethodPost, "/sync")
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestTriggerSync_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	rr := serve(t, mocks.NewMockSyncService(ctrl), http.MethodGet, "/sync")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestListProducts(t *testing.T) {
	t.Parallel()

	page := &service.ProductPage{
		Products: []catalog.Entry{{
			ID:  "a1",
			SKU: "SKU-1",
			Attributes: product.Attributes{
				Name:        "Mug",
				Price:       decimal.RequireFromString("9.90"),
				StockStatus: product.StockInStock,
			},
		}},
		Count:      1,
		NextCursor: service.EncodeCursor("SKU-1"),
	}

	tests := []struct {
		name           string
		target         string
		setupMock      func(*mocks.MockSyncService)
		expectedStatus int
	}{
		{
			name:   "no_options",
			target: "/products",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ListProducts(gomock.Any()).Return(page, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "all_options",
			target: "/products?cursor=U0tVLTA%3D&search=mug&limit=10",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ListProducts(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(page, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "non_numeric_limit",
			target:         "/products?limit=ten",
			setupMock:      func(*mocks.MockSyncService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "invalid_request",
			target: "/products?limit=-1",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ListProducts(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: invalid limit: -1", service.ErrInvalidRequest))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "catalog_failure",
			target: "/products",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ListProducts(gomock.Any()).Return(nil, errors.New("connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSyncService(ctrl)
			tt.setupMock(svc)

			rr := serve(t, svc, http.MethodGet, tt.target)
			assert.Equal(t, tt.expectedStatus, rr.Code)

			if tt.expectedStatus == http.StatusOK {
				var got map[string]any
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
				assert.EqualValues(t, 1, got["count"])
				assert.Equal(t, page.NextCursor, got["nextCursor"])
				products := got["products"].([]any)
				first := products[0].(map[string]any)
				assert.Equal(t, "SKU-1", first["sku"])
				assert.Equal(t, "9.9", first["price"])
			}
		})
	}
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target         string
		setupMock      func(*mocks.MockSyncService)
		expectedStatus int
	}{
		{
			name:   "found",
			target: "/products/SKU-1",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().GetProduct(gomock.Any(), "SKU-1").
					Return(&catalog.Entry{ID: "a1", SKU: "SKU-1"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "escaped_sku",
			target: "/products/A%2FB",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().GetProduct(gomock.Any(), "A/B").
					Return(&catalog.Entry{ID: "a2", SKU: "A/B"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "not_found",
			target: "/products/SKU-404",
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().GetProduct(gomock.Any(), "SKU-404").
					Return(nil, fmt.Errorf("%w: SKU-404", service.ErrProductNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "control_character_sku",
			target:         "/products/SKU%07",
			setupMock:      func(*mocks.MockSyncService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSyncService(ctrl)
			tt.setupMock(svc)

			rr := serve(t, svc, http.MethodGet, tt.target)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}
