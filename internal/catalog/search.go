package catalog

import (
	"context"
	"fmt"
	"sort"

	"phonescout/internal/model"
)

// Result 是搜索结果中的一个条目。
type Result struct {
	Product model.Product `json:"product"`
	Score   float64       `json:"score"`
}

// Search 按条件对候选商品打分排序。
//
// 排序规则：得分降序，得分相同按 product_id 升序，保证结果可复现。
// 存储失败时返回错误而不是截断的部分结果。
func Search(ctx context.Context, store Store, c Criteria) ([]Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	candidates, err := store.ListCandidates(ctx, CandidateFilter{
		Category: c.Category,
		Brand:    c.Brand,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	results := make([]Result, 0, len(candidates))
	for _, p := range candidates {
		score, matched := Score(&p, c)
		if !matched {
			continue
		}
		results = append(results, Result{Product: p, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Product.ID < results[j].Product.ID
	})

	return results, nil
}
