package refresh

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"phonescout/internal/model"
	"phonescout/internal/pkg/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeCatalog struct {
	product  *model.Product
	variants []model.Variant
	offers   map[string][]model.Offer
	emails   []string

	snapshotMin *float64
	snapshotMax *float64
	snapshots   int
}

func (f *fakeCatalog) ListProductIDs(ctx context.Context) ([]string, error) {
	return []string{f.product.ID}, nil
}

func (f *fakeCatalog) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	return f.variants, nil
}

func (f *fakeCatalog) ListOffers(ctx context.Context, variantID string) ([]model.Offer, error) {
	return f.offers[variantID], nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return f.product, nil
}

func (f *fakeCatalog) UpdatePriceSnapshot(ctx context.Context, productID string, min, max *float64) error {
	f.snapshotMin = min
	f.snapshotMax = max
	f.snapshots++
	return nil
}

func (f *fakeCatalog) AlertEmailsFor(ctx context.Context, productID string) ([]string, error) {
	return f.emails, nil
}

type fakeNotifier struct {
	drops  []notify.PriceDrop
	emails []string
}

func (n *fakeNotifier) SendPriceDrop(ctx context.Context, drop notify.PriceDrop, toEmail string) error {
	n.drops = append(n.drops, drop)
	n.emails = append(n.emails, toEmail)
	return nil
}

func setup(t *testing.T) (*fakeCatalog, *fakeNotifier, *Refresher, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	cat := &fakeCatalog{
		product:  &model.Product{ID: "p1", Brand: "Aurora", ModelName: "Aurora 5"},
		variants: []model.Variant{{ID: "v1", ProductID: "p1"}},
		offers: map[string][]model.Offer{
			"v1": {
				{ID: "o1", VariantID: "v1", Retailer: "techmart", PriceAmount: 700, PriceCurrency: "USD", Availability: model.AvailabilityInStock},
				{ID: "o2", VariantID: "v1", Retailer: "bitbazaar", PriceAmount: 760, PriceCurrency: "USD", Availability: model.AvailabilityInStock},
				{ID: "o3", VariantID: "v1", Retailer: "zenith", PriceAmount: 650, PriceCurrency: "USD", Availability: model.AvailabilityOutOfStock},
			},
		},
		emails: []string{"fan@example.com"},
	}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRefresher(cat, rdb, logger, notifier, time.Minute, 1, 10, time.Second)
	return cat, notifier, r, s
}

func TestRefreshProduct_UpdatesSnapshotFromInStockOffers(t *testing.T) {
	cat, notifier, r, _ := setup(t)

	if err := r.RefreshProduct(context.Background(), "p1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// 缺货报价不参与快照
	if cat.snapshotMin == nil || *cat.snapshotMin != 700 {
		t.Fatalf("expected price_min=700, got %+v", cat.snapshotMin)
	}
	if cat.snapshotMax == nil || *cat.snapshotMax != 760 {
		t.Fatalf("expected price_max=760, got %+v", cat.snapshotMax)
	}
	// 首次刷新没有历史最优价，不触发提醒
	if len(notifier.drops) != 0 {
		t.Fatalf("expected no notifications on first refresh, got %d", len(notifier.drops))
	}
}

func TestRefreshProduct_DetectsPriceDropAndNotifies(t *testing.T) {
	cat, notifier, r, s := setup(t)
	ctx := context.Background()

	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	// 降价并让去重窗口过期
	cat.offers["v1"][0].PriceAmount = 600
	s.FastForward(2 * time.Second)

	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if len(notifier.drops) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.drops))
	}
	drop := notifier.drops[0]
	if drop.OldPrice != 700 || drop.NewPrice != 600 {
		t.Fatalf("unexpected drop: %+v", drop)
	}
	if drop.Retailer != "techmart" {
		t.Fatalf("expected best retailer techmart, got %q", drop.Retailer)
	}
	if notifier.emails[0] != "fan@example.com" {
		t.Fatalf("expected subscriber email, got %q", notifier.emails[0])
	}
}

func TestRefreshProduct_PriceIncreaseDoesNotNotify(t *testing.T) {
	cat, notifier, r, s := setup(t)
	ctx := context.Background()

	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	cat.offers["v1"][0].PriceAmount = 800
	s.FastForward(2 * time.Second)

	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if len(notifier.drops) != 0 {
		t.Fatalf("expected no notification on price increase, got %d", len(notifier.drops))
	}
}

func TestRefreshProduct_DedupWindowSkipsRepeat(t *testing.T) {
	cat, _, r, _ := setup(t)
	ctx := context.Background()

	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := r.RefreshProduct(ctx, "p1"); err != nil {
		t.Fatalf("repeat refresh: %v", err)
	}

	if cat.snapshots != 1 {
		t.Fatalf("expected 1 snapshot update within window, got %d", cat.snapshots)
	}
}
