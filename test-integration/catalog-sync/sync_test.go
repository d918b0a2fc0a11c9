package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/webspark/catalog-sync/internal/product"
	"github.com/webspark/catalog-sync/internal/status"
	pkgsync "github.com/webspark/catalog-sync/internal/sync"
	"github.com/webspark/catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("Feed Synchronization", Label("file"), func() {
	var (
		tempDir      string
		feedServer   *helpers.FeedServer
		serverHelper *helpers.ServerTestHelper
	)

	startServer := func(opts helpers.ConfigOptions) {
		opts.FeedURL = feedServer.URL()
		configFile := helpers.WriteConfigYAML(tempDir, opts)

		var err error
		serverHelper, err = helpers.NewServerTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	}

	triggerSync := func() {
		resp, err := serverHelper.TriggerSync()
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			_ = resp.Body.Close()
		}()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
	}

	BeforeEach(func() {
		tempDir = createTempDir("catalog-sync-test-")
		feedServer = helpers.NewFeedServer(helpers.CreateTestProducts())
	})

	AfterEach(func() {
		if serverHelper != nil {
			Expect(serverHelper.StopServer()).To(Succeed())
			serverHelper = nil
		}
		feedServer.Close()
		cleanupTempDir(tempDir)
	})

	Context("Manual sync", func() {
		It("should create every product of the feed", func() {
			startServer(helpers.ConfigOptions{})
			triggerSync()

			st := serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			Expect(st.Counts.Created).To(Equal(3))
			Expect(st.Counts.Updated).To(BeZero())
			Expect(st.LastSyncHash).NotTo(BeEmpty())

			products := serverHelper.WaitForProducts(3, 5*time.Second)
			skus := make([]string, 0, len(products))
			for _, p := range products {
				skus = append(skus, p.SKU)
			}
			Expect(skus).To(Equal([]string{"BAG-1", "SHOE-1", "SHOE-2"}))

			boot := products[2]
			Expect(boot.Name).To(Equal("Boot"))
			Expect(boot.StockStatus).To(Equal(product.StockOutOfStock))
			Expect(boot.Price.Equal(decimal.RequireFromString("129"))).To(BeTrue())
		})

		It("should update existing products in place", func() {
			startServer(helpers.ConfigOptions{})
			triggerSync()
			serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			before := serverHelper.WaitForProducts(3, 5*time.Second)

			changed := helpers.CreateTestProducts()
			changed[0].Price = "49.90"
			feedServer.SetProducts(changed)
			triggerSync()

			Eventually(func() (int, error) {
				st, err := serverHelper.GetStatus()
				if err != nil {
					return 0, err
				}
				return st.Counts.Updated, nil
			}, 10*time.Second, 100*time.Millisecond).Should(Equal(3))

			after := serverHelper.WaitForProducts(3, 5*time.Second)
			for i := range after {
				Expect(after[i].ID).To(Equal(before[i].ID), "ids survive updates")
			}
			Expect(after[1].SKU).To(Equal("SHOE-1"))
			Expect(after[1].Price.Equal(decimal.RequireFromString("49.90"))).To(BeTrue())
		})

		It("should skip malformed records and keep going", func() {
			feedServer.SetRawBody(`[
				{"sku":"OK-1","name":"Fine","price":"1.00","in_stock":true},
				{"name":"no sku"},
				{"sku":"NEG","price":-5}
			]`)
			startServer(helpers.ConfigOptions{})
			triggerSync()

			st := serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			Expect(st.Counts.Created).To(Equal(1))
			Expect(st.Counts.Skipped).To(Equal(2))
			Expect(st.RecordErrors).To(HaveLen(2))
		})

		It("should truncate the feed to maxRecords", func() {
			startServer(helpers.ConfigOptions{MaxRecords: 2})
			triggerSync()

			st := serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			Expect(st.Counts.Total).To(Equal(3))
			Expect(st.Counts.Created).To(Equal(2))
			serverHelper.WaitForProducts(2, 5*time.Second)
		})

		It("should store only products passing the filter", func() {
			startServer(helpers.ConfigOptions{SKUInclude: []string{"SHOE-*"}, StockExclude: []string{"outofstock"}})
			triggerSync()

			st := serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			Expect(st.Counts.Filtered).To(Equal(2))

			products := serverHelper.WaitForProducts(1, 5*time.Second)
			Expect(products[0].SKU).To(Equal("SHOE-1"))
		})
	})

	Context("Feed unavailable", func() {
		It("should report the failure and leave the catalog untouched", func() {
			startServer(helpers.ConfigOptions{})
			triggerSync()
			serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)

			feedServer.Close()
			triggerSync()

			st := serverHelper.WaitForPhase(status.SyncPhaseFailed, 10*time.Second)
			Expect(st.ConditionReason).To(Equal(pkgsync.ReasonFetchFailed))
			Expect(st.AttemptCount).To(Equal(1))
			Expect(st.LastSyncTime).NotTo(BeNil())

			serverHelper.WaitForProducts(3, 5*time.Second)
		})
	})

	Context("Product lookup", func() {
		It("should return single products by SKU", func() {
			startServer(helpers.ConfigOptions{})
			triggerSync()
			serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)

			resp, err := serverHelper.GetProduct("BAG-1")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = serverHelper.GetProduct("NOPE-1")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should page through products with a cursor", func() {
			startServer(helpers.ConfigOptions{})
			triggerSync()
			serverHelper.WaitForProducts(3, 10*time.Second)

			page, err := serverHelper.GetProducts("limit=2")
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Products).To(HaveLen(2))
			Expect(page.NextCursor).NotTo(BeEmpty())

			page, err = serverHelper.GetProducts("limit=2&cursor=" + page.NextCursor)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Products).To(HaveLen(1))
			Expect(page.Products[0].SKU).To(Equal("SHOE-2"))
			Expect(page.NextCursor).To(BeEmpty())
		})
	})

	Context("Scheduling", func() {
		It("should activate the job once and run it on the aligned boundary", func() {
			startServer(helpers.ConfigOptions{IntervalMinutes: 30})
			binding := serverHelper.App().Components().Binding

			first, created, err := binding.Activate(ctx, 30*time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(first.NextRun).To(BeTemporally("<=", time.Now()), "the current boundary is already due")
			Expect(first.NextRun.Unix() % 1800).To(BeZero())

			// The poll loop picks the due trigger up without a manual request
			st := serverHelper.WaitForPhase(status.SyncPhaseComplete, 10*time.Second)
			Expect(st.Counts.Created).To(Equal(3))
			Expect(feedServer.Requests()).To(Equal(1))

			second, created, err := binding.Activate(ctx, 30*time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))

			removed, err := binding.Deactivate(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))

			active, err := binding.Active(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())
		})
	})
})
