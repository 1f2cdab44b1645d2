package catalog

import (
	"context"
	"errors"

	"phonescout/internal/model"
)

// ErrNotFound 表示引用的商品 / 配置不存在。
//
// 读路径（对比表、收藏列表）遇到它时就地跳过，不向上冒泡为硬错误。
var ErrNotFound = errors.New("catalog: not found")

// CandidateFilter 是 ListCandidates 的粗筛条件，打分前的可选预过滤。
type CandidateFilter struct {
	Category string // 品类（空表示不限）
	Brand    string // 品牌（空表示不限）
	Limit    int    // 候选上限（0 表示使用存储默认值）
}

// ReviewSummary 是一个商品的评测汇总。
type ReviewSummary struct {
	ProductID     string         `json:"product_id"`
	AverageRating float64        `json:"average_rating"` // 0-10
	ReviewCount   int            `json:"review_count"`
	CoverageLevel string         `json:"coverage_level"` // low / medium / high
	Pros          []string       `json:"pros"`           // 共识优点
	Cons          []string       `json:"cons"`           // 共识缺点
	Credibility   map[string]int `json:"credibility"`    // 按来源类型计数
}

// Store 是打分与对比逻辑依赖的商品存储协作方。
//
// 实现方负责重试 / 超时；本包不包裹存储错误，原样向调用方透传。
type Store interface {
	// GetProduct 按 ID 查询商品，不存在时返回 ErrNotFound。
	GetProduct(ctx context.Context, id string) (*model.Product, error)

	// ListVariants 返回商品的全部配置，按 ID 升序。
	ListVariants(ctx context.Context, productID string) ([]model.Variant, error)

	// ListOffers 返回配置的全部报价，按价格升序。
	ListOffers(ctx context.Context, variantID string) ([]model.Offer, error)

	// GetReviewSummary 返回商品的评测汇总，没有评测时返回 (nil, nil)。
	GetReviewSummary(ctx context.Context, productID string) (*ReviewSummary, error)

	// ListCandidates 按粗筛条件返回候选商品。
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Product, error)
}
