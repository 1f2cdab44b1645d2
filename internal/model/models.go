package model

import (
	"time"
)

// Offer 的 condition / availability 取值。
const (
	ConditionNew         = "new"
	ConditionRefurbished = "refurbished"

	AvailabilityInStock    = "in-stock"
	AvailabilityOutOfStock = "out-of-stock"
	AvailabilityLimited    = "limited"
	AvailabilityPreorder   = "preorder"
)

// Product 表示一个商品文档。
//
// ID 一经分配不可变。Specs 是按品类自由伸缩的规格映射（手机和电视几乎
// 没有共同字段），后续数据补全只会增加或显式更新字段，不会静默丢弃。
// PriceMin/PriceMax 是从在售 Offer 聚合出的价格快照，由刷新器维护。
type Product struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"` // 商品唯一标识（不可变）
	CreatedAt time.Time // 首次入库时间
	UpdatedAt time.Time // 更新时间

	Category         string     `gorm:"type:varchar(32);index;not null"` // 品类标签，如 "phone"
	Brand            string     `gorm:"type:varchar(64);index;not null"` // 品牌
	Series           string     `gorm:"type:varchar(64)"`                // 产品系列（可选）
	ModelName        string     `gorm:"not null"`                        // 型号名
	ReleaseDate      *time.Time // 发布日期（可选）
	DefaultVariantID string     `gorm:"type:varchar(64)"` // 默认配置，必须指向自己的 Variant

	Specs SpecMap `gorm:"serializer:json"` // 规格文档

	PriceMin *float64 // 最低在售价格快照（无报价时为空）
	PriceMax *float64 // 最高在售价格快照

	Variants []Variant `gorm:"foreignKey:ProductID"` // 所属配置列表
}

// Variant 表示商品的一个可售配置（颜色/容量），归属于唯一的 Product。
type Variant struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductID string `gorm:"type:varchar(64);index;not null"` // 所属商品
	SKU       string `gorm:"type:varchar(64)"`
	Color     string `gorm:"type:varchar(32)"`
	StorageGB int    // 存储容量
	RAMGB     int    // 内存（0 表示未知）

	Offers []Offer `gorm:"foreignKey:VariantID"`
}

// Offer 表示零售商对某个 Variant 的报价。
//
// 报价是短生命周期数据：重新抓取时整体替换，不做合并。
type Offer struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	VariantID     string     `gorm:"type:varchar(64);index;not null"` // 所属配置
	Retailer      string     `gorm:"type:varchar(32);not null"`       // 零售商名
	Condition     string     `gorm:"type:varchar(16);default:new"`    // new / refurbished / open-box
	PriceAmount   float64    `gorm:"not null"`                        // 价格
	PriceCurrency string     `gorm:"type:varchar(8);default:USD"`     // 货币
	Availability  string     `gorm:"type:varchar(16);default:in-stock"`
	DiscountPct   *float64   // 折扣百分比（可选）
	StoreName     string     `gorm:"type:varchar(128)"` // 线下取货门店（可选）
	URL           string     // 商品页链接
	LastSeenAt    *time.Time // 上次抓取确认时间
}

// Review 表示一条商品评测，汇总后产出 ReviewSummary。
type Review struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductID        string   `gorm:"type:varchar(64);index;not null"`
	Source           string   `gorm:"type:varchar(64)"`                     // 来源名（媒体/平台）
	SourceType       string   `gorm:"type:varchar(16);default:user-review"` // pro-review / user-review
	Rating           float64  // 0-10 评分
	Pros             []string `gorm:"serializer:json"` // 优点
	Cons             []string `gorm:"serializer:json"` // 缺点
	CredibilityScore float64  `gorm:"default:0.5"`     // 来源可信度 0-1
	URL              string
}

// Favorite 表示某个访客收藏的一个商品。
//
// 访客由签名 cookie 中的 token 标识，库内只存 token 的哈希。
type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time // 收藏时间

	CallerHash string `gorm:"type:varchar(64);uniqueIndex:idx_caller_product;not null"` // 访客标识哈希
	ProductID  string `gorm:"type:varchar(64);uniqueIndex:idx_caller_product;not null"`
}

// AlertSubscription 记录访客的降价提醒邮箱（可选，整个收藏夹共用一个）。
type AlertSubscription struct {
	CallerHash string `gorm:"type:varchar(64);primaryKey"`
	Email      string `gorm:"type:varchar(191);not null"`
	UpdatedAt  time.Time
}
