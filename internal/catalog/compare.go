package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"phonescout/internal/model"
)

// UnknownValue 是对比表中“该商品缺失此规格字段”的显式占位符。
//
// 缺失字段渲染占位符而不是省略行，保证表格对所有商品是矩形的。
const UnknownValue = "unknown"

// BasicInfo 对比表的基础信息段。
type BasicInfo struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Category string `json:"category"`
}

// Pricing 对比表的价格段。
type Pricing struct {
	PriceMin     *float64 `json:"price_min"`     // 价格区间下限（无报价时为空）
	PriceMax     *float64 `json:"price_max"`     // 价格区间上限
	BestPrice    *float64 `json:"best_price"`    // 当前最优在售价
	BestRetailer string   `json:"best_retailer"` // 最优价对应零售商
	Currency     string   `json:"currency"`
}

// Ratings 对比表的评分段。
type Ratings struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
	CoverageLevel string  `json:"coverage_level"`
}

// Availability 对比表的供应段。
type Availability struct {
	VariantCount int  `json:"variant_count"`
	OfferCount   int  `json:"offer_count"`
	InStock      bool `json:"in_stock"`
}

// ComparisonTable 是跨商品的对齐对比视图。
//
// 五个段固定顺序：基础信息 → 价格 → 评分 → 规格 → 供应。每段按
// product_id 索引。SpecFields 是会话内所有商品规格字段名的并集，
// 顺序为跨商品首次出现顺序（单个商品内部按字段名排序），因此同一
// 会话加同样的底层数据重复构建结果一致。
type ComparisonTable struct {
	ProductIDs   []string                     `json:"product_ids"` // 会话顺序（仅含仍存在的商品）
	BasicInfo    map[string]BasicInfo         `json:"basic_info"`
	Pricing      map[string]Pricing           `json:"pricing"`
	Ratings      map[string]Ratings           `json:"ratings"`
	SpecFields   []string                     `json:"spec_fields"`
	Specs        map[string]map[string]string `json:"specs"`
	Availability map[string]Availability      `json:"availability"`
}

// Empty 报告对比表是否没有任何商品。
func (t *ComparisonTable) Empty() bool {
	return t == nil || len(t.ProductIDs) == 0
}

type resolved struct {
	product  *model.Product
	variants []model.Variant
	offers   []model.Offer
	summary  *ReviewSummary
}

// BuildComparison 为一组商品 ID（会话顺序）构建对比表。
//
// 已从存储中消失的商品就地跳过：会话只是 ID 列表，不缓存解析结果，
// 商品恢复后重新构建即可再次看到它。其余存储错误原样返回。
func BuildComparison(ctx context.Context, ids []string, store Store) (*ComparisonTable, error) {
	table := &ComparisonTable{
		ProductIDs:   []string{},
		BasicInfo:    map[string]BasicInfo{},
		Pricing:      map[string]Pricing{},
		Ratings:      map[string]Ratings{},
		SpecFields:   []string{},
		Specs:        map[string]map[string]string{},
		Availability: map[string]Availability{},
	}

	items := make([]resolved, 0, len(ids))
	for _, id := range ids {
		item, err := resolveProduct(ctx, id, store)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	// 规格字段并集：跨商品首次出现顺序，单商品内部按字段名排序
	seen := map[string]bool{}
	for _, item := range items {
		keys := make([]string, 0, len(item.product.Specs))
		for k := range item.product.Specs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				table.SpecFields = append(table.SpecFields, k)
			}
		}
	}

	for _, item := range items {
		p := item.product
		table.ProductIDs = append(table.ProductIDs, p.ID)

		table.BasicInfo[p.ID] = BasicInfo{
			Brand:    p.Brand,
			Model:    p.ModelName,
			Category: p.Category,
		}

		pricing := Pricing{PriceMin: p.PriceMin, PriceMax: p.PriceMax, Currency: "USD"}
		if best := bestOffer(item.offers); best != nil {
			price := best.PriceAmount
			pricing.BestPrice = &price
			pricing.BestRetailer = best.Retailer
			if best.PriceCurrency != "" {
				pricing.Currency = best.PriceCurrency
			}
		}
		table.Pricing[p.ID] = pricing

		ratings := Ratings{CoverageLevel: "none"}
		if item.summary != nil {
			ratings = Ratings{
				AverageRating: item.summary.AverageRating,
				ReviewCount:   item.summary.ReviewCount,
				CoverageLevel: item.summary.CoverageLevel,
			}
		}
		table.Ratings[p.ID] = ratings

		row := make(map[string]string, len(table.SpecFields))
		for _, field := range table.SpecFields {
			if v, ok := p.Specs[field]; ok {
				row[field] = v.Display()
			} else {
				row[field] = UnknownValue
			}
		}
		table.Specs[p.ID] = row

		inStock := false
		for _, o := range item.offers {
			if o.Availability == model.AvailabilityInStock {
				inStock = true
				break
			}
		}
		table.Availability[p.ID] = Availability{
			VariantCount: len(item.variants),
			OfferCount:   len(item.offers),
			InStock:      inStock,
		}
	}

	return table, nil
}

func resolveProduct(ctx context.Context, id string, store Store) (resolved, error) {
	p, err := store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return resolved{}, err
		}
		return resolved{}, fmt.Errorf("get product %s: %w", id, err)
	}

	variants, err := store.ListVariants(ctx, id)
	if err != nil {
		return resolved{}, fmt.Errorf("list variants for %s: %w", id, err)
	}

	var offers []model.Offer
	for _, v := range variants {
		vo, err := store.ListOffers(ctx, v.ID)
		if err != nil {
			return resolved{}, fmt.Errorf("list offers for variant %s: %w", v.ID, err)
		}
		offers = append(offers, vo...)
	}

	summary, err := store.GetReviewSummary(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return resolved{}, fmt.Errorf("get review summary for %s: %w", id, err)
	}

	return resolved{product: p, variants: variants, offers: offers, summary: summary}, nil
}

// bestOffer 返回在售报价中价格最低的一条，价格相同按零售商名升序。
func bestOffer(offers []model.Offer) *model.Offer {
	var best *model.Offer
	for i := range offers {
		o := &offers[i]
		if o.Availability != model.AvailabilityInStock {
			continue
		}
		if best == nil ||
			o.PriceAmount < best.PriceAmount ||
			(o.PriceAmount == best.PriceAmount && o.Retailer < best.Retailer) {
			best = o
		}
	}
	return best
}
