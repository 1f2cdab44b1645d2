package api

import (
	"context"
	"log/slog"

	"phonescout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedDemoData 初始化演示商品数据。
//
// 已有商品时跳过，保证重启不会覆盖线上数据。演示数据刻意让部分商品
// 缺失规格字段，方便观察对比表的 unknown 占位行为。
func SeedDemoData(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []model.Product{
		{
			ID:               "ps-aurora-5",
			Category:         "phone",
			Brand:            "Aurora",
			Series:           "Aurora",
			ModelName:        "Aurora 5",
			DefaultVariantID: "ps-aurora-5-256-black",
			Specs: model.SpecMap{
				"os":         model.Text("Android"),
				"ram_gb":     model.Num(12),
				"storage_gb": model.Range(128, 512),
				"display": model.Group(map[string]model.SpecValue{
					"size_in":    model.Num(6.7),
					"refresh_hz": model.Num(120),
					"panel":      model.Text("OLED"),
				}),
				"battery": model.Group(map[string]model.SpecValue{
					"capacity_mah": model.Num(5000),
					"charge_w":     model.Num(65),
				}),
				"cameras": model.Group(map[string]model.SpecValue{
					"main": model.Group(map[string]model.SpecValue{
						"mp":       model.Num(50),
						"aperture": model.Text("f/1.8"),
					}),
					"ultrawide": model.Group(map[string]model.SpecValue{
						"mp": model.Num(12),
					}),
				}),
			},
		},
		{
			ID:               "ps-vela-x",
			Category:         "phone",
			Brand:            "Vela",
			ModelName:        "Vela X",
			DefaultVariantID: "ps-vela-x-256-silver",
			Specs: model.SpecMap{
				"os":         model.Text("iOS"),
				"ram_gb":     model.Num(8),
				"storage_gb": model.Range(256, 1024),
				"display": model.Group(map[string]model.SpecValue{
					"size_in":    model.Num(6.1),
					"refresh_hz": model.Num(120),
				}),
				"battery": model.Group(map[string]model.SpecValue{
					"capacity_mah": model.Num(4400),
				}),
				"camera_mp": model.Num(48),
			},
		},
		{
			// 低端机：缺失电池/相机字段，对比表中应渲染 unknown
			ID:               "ps-nimbus-lite",
			Category:         "phone",
			Brand:            "Nimbus",
			ModelName:        "Nimbus Lite",
			DefaultVariantID: "ps-nimbus-lite-128-blue",
			Specs: model.SpecMap{
				"os":         model.Text("Android"),
				"ram_gb":     model.Num(6),
				"storage_gb": model.Range(64, 128),
			},
		},
		{
			ID:        "ps-titan-tab",
			Category:  "tablet",
			Brand:     "Aurora",
			ModelName: "Titan Tab",
			Specs: model.SpecMap{
				"os":         model.Text("Android"),
				"ram_gb":     model.Num(8),
				"storage_gb": model.Range(128, 256),
				"display": model.Group(map[string]model.SpecValue{
					"size_in": model.Num(11),
				}),
			},
		},
	}

	variants := []model.Variant{
		{ID: "ps-aurora-5-256-black", ProductID: "ps-aurora-5", SKU: "AUR5-256-BLK", Color: "black", StorageGB: 256, RAMGB: 12},
		{ID: "ps-aurora-5-512-white", ProductID: "ps-aurora-5", SKU: "AUR5-512-WHT", Color: "white", StorageGB: 512, RAMGB: 12},
		{ID: "ps-vela-x-256-silver", ProductID: "ps-vela-x", SKU: "VLX-256-SLV", Color: "silver", StorageGB: 256, RAMGB: 8},
		{ID: "ps-nimbus-lite-128-blue", ProductID: "ps-nimbus-lite", SKU: "NBL-128-BLU", Color: "blue", StorageGB: 128, RAMGB: 6},
		{ID: "ps-titan-tab-128", ProductID: "ps-titan-tab", SKU: "TTB-128", StorageGB: 128, RAMGB: 8},
	}

	offers := []model.Offer{
		{ID: "of-aurora-5-1", VariantID: "ps-aurora-5-256-black", Retailer: "techmart", Condition: model.ConditionNew, PriceAmount: 749, PriceCurrency: "USD", Availability: model.AvailabilityInStock, URL: "https://techmart.example/aurora-5"},
		{ID: "of-aurora-5-2", VariantID: "ps-aurora-5-256-black", Retailer: "bitbazaar", Condition: model.ConditionNew, PriceAmount: 779, PriceCurrency: "USD", Availability: model.AvailabilityInStock, URL: "https://bitbazaar.example/aurora-5"},
		{ID: "of-aurora-5-3", VariantID: "ps-aurora-5-512-white", Retailer: "techmart", Condition: model.ConditionNew, PriceAmount: 899, PriceCurrency: "USD", Availability: model.AvailabilityLimited, URL: "https://techmart.example/aurora-5-512"},
		{ID: "of-vela-x-1", VariantID: "ps-vela-x-256-silver", Retailer: "techmart", Condition: model.ConditionNew, PriceAmount: 1099, PriceCurrency: "USD", Availability: model.AvailabilityInStock, URL: "https://techmart.example/vela-x"},
		{ID: "of-nimbus-1", VariantID: "ps-nimbus-lite-128-blue", Retailer: "bitbazaar", Condition: model.ConditionNew, PriceAmount: 249, PriceCurrency: "USD", Availability: model.AvailabilityInStock, URL: "https://bitbazaar.example/nimbus-lite"},
		{ID: "of-titan-1", VariantID: "ps-titan-tab-128", Retailer: "techmart", Condition: model.ConditionRefurbished, PriceAmount: 329, PriceCurrency: "USD", Availability: model.AvailabilityOutOfStock, URL: "https://techmart.example/titan-tab"},
	}

	reviews := []model.Review{
		{ID: "rv-aurora-1", ProductID: "ps-aurora-5", Source: "techdaily", SourceType: "pro-review", Rating: 8.8, Pros: []string{"great battery life", "bright display"}, Cons: []string{"slow updates"}, CredibilityScore: 0.9},
		{ID: "rv-aurora-2", ProductID: "ps-aurora-5", Source: "shopverse", SourceType: "user-review", Rating: 8.2, Pros: []string{"great battery life", "fast charging"}, Cons: []string{"slippery back"}, CredibilityScore: 0.5},
		{ID: "rv-vela-1", ProductID: "ps-vela-x", Source: "techdaily", SourceType: "pro-review", Rating: 9.1, Pros: []string{"best-in-class camera"}, Cons: []string{"expensive"}, CredibilityScore: 0.9},
	}

	insert := func(value interface{}) error {
		return db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(value).Error
	}
	if err := insert(&products); err != nil {
		return err
	}
	if err := insert(&variants); err != nil {
		return err
	}
	if err := insert(&offers); err != nil {
		return err
	}
	if err := insert(&reviews); err != nil {
		return err
	}

	logger.Info("demo data seeded",
		slog.Int("products", len(products)),
		slog.Int("offers", len(offers)))
	return nil
}
