package store

import (
	"context"
	"errors"
	"fmt"

	"phonescout/internal/catalog"
	"phonescout/internal/model"

	"gorm.io/gorm"
)

// 评测覆盖度分档：来源数 >=10 为 high，>=5 为 medium，其余 low。
const (
	coverageHighAt   = 10
	coverageMediumAt = 5

	defaultCandidateLimit = 100
)

// Store 是 catalog.Store 的 MySQL 实现。
type Store struct {
	db *gorm.DB
}

// New 创建存储实例。
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate 迁移全部表结构。
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Product{},
		&model.Variant{},
		&model.Offer{},
		&model.Review{},
		&model.Favorite{},
		&model.AlertSubscription{},
	)
}

// GetProduct 按 ID 查询商品。
func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListVariants 返回商品的全部配置，按 ID 升序。
func (s *Store) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	variants := []model.Variant{}
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

// ListOffers 返回配置的全部报价，按价格升序。
func (s *Store) ListOffers(ctx context.Context, variantID string) ([]model.Offer, error) {
	offers := []model.Offer{}
	if err := s.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("price_amount ASC, retailer ASC").
		Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

// ReplaceOffers 整体替换一个配置的报价。报价是可刷新数据，不做合并。
func (s *Store) ReplaceOffers(ctx context.Context, variantID string, offers []model.Offer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("variant_id = ?", variantID).Delete(&model.Offer{}).Error; err != nil {
			return fmt.Errorf("delete old offers: %w", err)
		}
		for i := range offers {
			offers[i].VariantID = variantID
		}
		if len(offers) == 0 {
			return nil
		}
		if err := tx.Create(&offers).Error; err != nil {
			return fmt.Errorf("insert offers: %w", err)
		}
		return nil
	})
}

// GetReviewSummary 汇总商品的评测行，没有评测时返回 (nil, nil)。
//
// 共识优缺点取可信度最高的来源先出现的条目去重，优点最多 5 条、缺点最多 3 条。
func (s *Store) GetReviewSummary(ctx context.Context, productID string) (*catalog.ReviewSummary, error) {
	reviews := []model.Review{}
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("credibility_score DESC, id ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) == 0 {
		return nil, nil
	}

	var ratingSum float64
	credibility := map[string]int{}
	var pros, cons []string
	seenPro := map[string]bool{}
	seenCon := map[string]bool{}
	for _, r := range reviews {
		ratingSum += r.Rating
		credibility[r.SourceType]++
		for _, p := range r.Pros {
			if !seenPro[p] && len(pros) < 5 {
				seenPro[p] = true
				pros = append(pros, p)
			}
		}
		for _, c := range r.Cons {
			if !seenCon[c] && len(cons) < 3 {
				seenCon[c] = true
				cons = append(cons, c)
			}
		}
	}

	coverage := "low"
	switch {
	case len(reviews) >= coverageHighAt:
		coverage = "high"
	case len(reviews) >= coverageMediumAt:
		coverage = "medium"
	}

	return &catalog.ReviewSummary{
		ProductID:     productID,
		AverageRating: ratingSum / float64(len(reviews)),
		ReviewCount:   len(reviews),
		CoverageLevel: coverage,
		Pros:          pros,
		Cons:          cons,
		Credibility:   credibility,
	}, nil
}

// ListCandidates 按粗筛条件返回候选商品，ID 升序保证打分输入稳定。
func (s *Store) ListCandidates(ctx context.Context, filter catalog.CandidateFilter) ([]model.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	query := s.db.WithContext(ctx).Model(&model.Product{}).Order("id ASC").Limit(limit)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Brand != "" {
		query = query.Where("LOWER(brand) = LOWER(?)", filter.Brand)
	}
	products := []model.Product{}
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return products, nil
}

// ListProductIDs 返回全部商品 ID，供刷新器遍历。
func (s *Store) ListProductIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	return ids, nil
}

// UpdatePriceSnapshot 更新商品的价格区间快照。
func (s *Store) UpdatePriceSnapshot(ctx context.Context, productID string, min, max *float64) error {
	updates := map[string]interface{}{
		"price_min": min,
		"price_max": max,
	}
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update price snapshot: %w", err)
	}
	return nil
}

// ListCategories 返回每个品类的商品数量，按数量降序。
func (s *Store) ListCategories(ctx context.Context) ([]CategoryInfo, error) {
	categories := []CategoryInfo{}
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Select("category, COUNT(*) AS product_count").
		Group("category").
		Order("product_count DESC, category ASC").
		Scan(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryInfo 是品类聚合信息。
type CategoryInfo struct {
	Category     string `json:"category"`
	ProductCount int    `json:"product_count"`
}
