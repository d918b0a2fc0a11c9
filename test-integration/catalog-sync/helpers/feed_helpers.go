package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/onsi/gomega"
)

// FeedProduct is one element of the test feed
type FeedProduct struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	InStock     bool   `json:"in_stock"`
}

// FeedServer serves a product feed whose content can be swapped between cycles
type FeedServer struct {
	server *httptest.Server

	mu       sync.Mutex
	body     []byte
	requests int
}

// NewFeedServer starts a feed server publishing products
func NewFeedServer(products []FeedProduct) *FeedServer {
	f := &FeedServer{}
	f.SetProducts(products)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		body := f.body
		f.requests++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	return f
}

// SetProducts replaces the published products
func (f *FeedServer) SetProducts(products []FeedProduct) {
	body, err := json.Marshal(products)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

// SetRawBody publishes body as is
func (f *FeedServer) SetRawBody(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = []byte(body)
}

// Requests returns how many times the feed was downloaded
func (f *FeedServer) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// URL returns the feed address
func (f *FeedServer) URL() string {
	return f.server.URL
}

// Close stops the server
func (f *FeedServer) Close() {
	f.server.Close()
}

// CreateTestProducts returns a small well-formed feed
func CreateTestProducts() []FeedProduct {
	return []FeedProduct{
		{SKU: "SHOE-1", Name: "Sneaker", Description: "White sneaker", Price: "59.90", InStock: true},
		{SKU: "SHOE-2", Name: "Boot", Description: "Leather boot", Price: "129.00", InStock: false},
		{SKU: "BAG-1", Name: "Tote", Description: "Canvas tote", Price: "25.00", InStock: true},
	}
}
