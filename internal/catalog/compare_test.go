package catalog

import (
	"context"
	"errors"
	"testing"

	"phonescout/internal/model"
)

func TestBuildComparison_UnknownMarkersKeepTableRectangular(t *testing.T) {
	rich := phone("rich", 700, model.SpecMap{
		"os":     model.Text("Android"),
		"ram_gb": model.Num(12),
		"battery": model.Group(map[string]model.SpecValue{
			"capacity_mah": model.Num(5000),
		}),
	})
	sparse := phone("sparse", 250, model.SpecMap{
		"os": model.Text("Android"),
	})
	st := newMemStore(rich, sparse)

	table, err := BuildComparison(context.Background(), []string{"rich", "sparse"}, st)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}

	for _, id := range table.ProductIDs {
		row := table.Specs[id]
		if len(row) != len(table.SpecFields) {
			t.Fatalf("product %s: row has %d cells, want %d", id, len(row), len(table.SpecFields))
		}
	}
	if table.Specs["sparse"]["ram_gb"] != UnknownValue {
		t.Fatalf("missing field must render %q, got %q", UnknownValue, table.Specs["sparse"]["ram_gb"])
	}
	if table.Specs["rich"]["ram_gb"] == UnknownValue {
		t.Fatal("present field must not render unknown")
	}
}

func TestBuildComparison_SpecFieldUnionFirstSeenOrder(t *testing.T) {
	first := phone("first", 500, model.SpecMap{
		"os":     model.Text("Android"),
		"ram_gb": model.Num(8),
	})
	second := phone("second", 500, model.SpecMap{
		"battery_mah": model.Num(4500),
		"os":          model.Text("iOS"),
	})
	st := newMemStore(first, second)

	table, err := BuildComparison(context.Background(), []string{"first", "second"}, st)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}

	// 第一个商品的字段（内部按名称排序）先出现，第二个商品只补充新字段
	want := []string{"os", "ram_gb", "battery_mah"}
	if len(table.SpecFields) != len(want) {
		t.Fatalf("spec fields = %v, want %v", table.SpecFields, want)
	}
	for i := range want {
		if table.SpecFields[i] != want[i] {
			t.Fatalf("spec fields = %v, want %v", table.SpecFields, want)
		}
	}
}

func TestBuildComparison_VanishedProductSkippedInPlace(t *testing.T) {
	st := newMemStore(
		phone("alive", 500, model.SpecMap{"os": model.Text("Android")}),
	)

	table, err := BuildComparison(context.Background(), []string{"alive", "gone"}, st)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}
	if len(table.ProductIDs) != 1 || table.ProductIDs[0] != "alive" {
		t.Fatalf("expected only surviving product, got %v", table.ProductIDs)
	}
}

func TestBuildComparison_EmptyInput(t *testing.T) {
	table, err := BuildComparison(context.Background(), nil, newMemStore())
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}
	if !table.Empty() {
		t.Fatal("expected empty table")
	}
}

func TestBuildComparison_BestOfferPrefersInStockLowestPrice(t *testing.T) {
	p := phone("p1", 700, model.SpecMap{})
	st := newMemStore(p)
	st.variants["p1"] = []model.Variant{{ID: "v1", ProductID: "p1"}}
	st.offers["v1"] = []model.Offer{
		{ID: "o1", VariantID: "v1", Retailer: "zenith", PriceAmount: 650, Availability: model.AvailabilityOutOfStock},
		{ID: "o2", VariantID: "v1", Retailer: "bitbazaar", PriceAmount: 700, Availability: model.AvailabilityInStock},
		{ID: "o3", VariantID: "v1", Retailer: "techmart", PriceAmount: 700, Availability: model.AvailabilityInStock, PriceCurrency: "USD"},
	}

	table, err := BuildComparison(context.Background(), []string{"p1"}, st)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}

	pricing := table.Pricing["p1"]
	if pricing.BestPrice == nil || *pricing.BestPrice != 700 {
		t.Fatalf("expected best price 700 (in stock only), got %+v", pricing.BestPrice)
	}
	// 同价按零售商名升序
	if pricing.BestRetailer != "bitbazaar" {
		t.Fatalf("expected tie broken by retailer name, got %q", pricing.BestRetailer)
	}
	if !table.Availability["p1"].InStock {
		t.Fatal("expected in_stock=true")
	}
	if table.Availability["p1"].OfferCount != 3 {
		t.Fatalf("expected 3 offers, got %d", table.Availability["p1"].OfferCount)
	}
}

func TestBuildComparison_RatingsDefaultToNone(t *testing.T) {
	st := newMemStore(phone("p1", 500, model.SpecMap{}))

	table, err := BuildComparison(context.Background(), []string{"p1"}, st)
	if err != nil {
		t.Fatalf("build comparison: %v", err)
	}
	if table.Ratings["p1"].CoverageLevel != "none" {
		t.Fatalf("expected coverage none without reviews, got %q", table.Ratings["p1"].CoverageLevel)
	}
}

type failingStore struct {
	*memStore
}

func (s failingStore) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	return nil, errors.New("variants unavailable")
}

func TestBuildComparison_StoreErrorPropagates(t *testing.T) {
	st := failingStore{newMemStore(phone("p1", 500, model.SpecMap{}))}

	if _, err := BuildComparison(context.Background(), []string{"p1"}, st); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
