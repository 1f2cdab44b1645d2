package catalog

import (
	"errors"
	"fmt"
	"strings"

	"phonescout/internal/model"
)

// ErrInvalidCriteria 表示筛选条件不合法，请求在打分前直接拒绝。
var ErrInvalidCriteria = errors.New("catalog: invalid criteria")

// Criteria 是一次搜索的筛选条件。所有字段均可选。
//
// 硬性条件（budget / os / brand / min_ram / min_storage）不满足时商品被
// 排除而不是扣分；但商品缺失 min_ram / min_storage 对应的字段时视为未知，
// 照常通过，缺数据不应像明确不达标一样被惩罚。
type Criteria struct {
	Category         string   `json:"category"`          // 品类（粗筛用）
	BudgetMax        *float64 `json:"budget_max"`        // 预算上限
	OS               string   `json:"os"`                // 操作系统，精确匹配（忽略大小写）
	Brand            string   `json:"brand"`             // 品牌，精确匹配（忽略大小写）
	MinRAM           *float64 `json:"min_ram"`           // 内存下限 (GB)
	MinStorage       *float64 `json:"min_storage"`       // 存储下限 (GB)
	CameraImportance float64  `json:"camera_importance"` // 相机权重，0 表示中性 (=1.0)
}

// Validate 校验条件取值，负数数值直接拒绝。
func (c Criteria) Validate() error {
	if c.BudgetMax != nil && *c.BudgetMax < 0 {
		return fmt.Errorf("%w: budget_max must be non-negative", ErrInvalidCriteria)
	}
	if c.MinRAM != nil && *c.MinRAM < 0 {
		return fmt.Errorf("%w: min_ram must be non-negative", ErrInvalidCriteria)
	}
	if c.MinStorage != nil && *c.MinStorage < 0 {
		return fmt.Errorf("%w: min_storage must be non-negative", ErrInvalidCriteria)
	}
	if c.CameraImportance < 0 {
		return fmt.Errorf("%w: camera_importance must be non-negative", ErrInvalidCriteria)
	}
	return nil
}

func (c Criteria) cameraWeight() float64 {
	if c.CameraImportance == 0 {
		return 1.0
	}
	return c.CameraImportance
}

// 打分基准。最终得分无上界；内部保留浮点精度，仅展示时取整。
//
// 量纲：基础分 50；价格贴合最多 +30；内存每 GB +5；存储区间上限每 32GB +1；
// 电池每 100mAh +1；刷新率每 10Hz +1；主摄每 5MP +1（乘相机权重）。
const (
	baseScore      = 50.0
	priceFitWeight = 30.0
)

// Score 对单个商品按条件打分。
//
// 返回值:
//
//	score: 数值得分（仅当 matched 为 true 时有意义）
//	matched: 商品是否通过全部硬性条件
//
// 商品没有价格快照时无法参与预算过滤（未知上界不可判定），但仍参与规格项打分。
func Score(p *model.Product, c Criteria) (score float64, matched bool) {
	if c.OS != "" {
		os, ok := p.Specs.TextField("os")
		if !ok || !strings.EqualFold(strings.TrimSpace(os), strings.TrimSpace(c.OS)) {
			return 0, false
		}
	}
	if c.Brand != "" && !strings.EqualFold(strings.TrimSpace(p.Brand), strings.TrimSpace(c.Brand)) {
		return 0, false
	}
	if c.BudgetMax != nil && p.PriceMin != nil && *p.PriceMin > *c.BudgetMax {
		return 0, false
	}
	if c.MinRAM != nil {
		if ram, ok := p.Specs.NumberField("ram_gb"); ok && ram < *c.MinRAM {
			return 0, false
		}
	}
	if c.MinStorage != nil {
		// 区间规格取下限，对齐“最小可售配置是否达标”的判断
		if min, _, ok := p.Specs.RangeField("storage_gb"); ok && min < *c.MinStorage {
			return 0, false
		}
	}

	score = baseScore

	if c.BudgetMax != nil && *c.BudgetMax > 0 && p.PriceMin != nil {
		score += (*c.BudgetMax - *p.PriceMin) / *c.BudgetMax * priceFitWeight
	}

	// 规格丰富度：字段缺失贡献 0，永远不为负
	if ram, ok := p.Specs.NumberField("ram_gb"); ok && ram > 0 {
		score += ram * 5
	}
	if _, max, ok := p.Specs.RangeField("storage_gb"); ok && max > 0 {
		score += max / 32
	}
	if mah, ok := p.Specs.NumberAt("battery", "capacity_mah"); ok && mah > 0 {
		score += mah / 100
	}
	if hz, ok := p.Specs.NumberAt("display", "refresh_hz"); ok && hz > 0 {
		score += hz / 10
	}
	if mp, ok := mainCameraMP(p.Specs); ok && mp > 0 {
		score += mp / 5 * c.cameraWeight()
	}

	return score, true
}

// mainCameraMP 取主摄像素：优先 cameras.main.mp 嵌套结构，退化为 camera_mp 标量。
func mainCameraMP(specs model.SpecMap) (float64, bool) {
	if mp, ok := specs.NumberAt("cameras", "main", "mp"); ok {
		return mp, true
	}
	if mp, ok := specs.NumberField("camera_mp"); ok {
		return mp, true
	}
	return 0, false
}

// DisplayScore 将内部浮点得分取整用于展示。
func DisplayScore(score float64) int {
	if score >= 0 {
		return int(score + 0.5)
	}
	return int(score - 0.5)
}
