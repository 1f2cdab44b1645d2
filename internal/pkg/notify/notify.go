package notify

import (
	"context"

	"phonescout/internal/model"
)

// PriceDrop 描述一次检测到的降价。
type PriceDrop struct {
	Product  *model.Product // 降价商品
	OldPrice float64        // 之前的最优价
	NewPrice float64        // 当前最优价
	Retailer string         // 当前最优价零售商
	Currency string
}

// Notifier 定义降价提醒接口。
type Notifier interface {
	// SendPriceDrop 向订阅者发送降价提醒。
	SendPriceDrop(ctx context.Context, drop PriceDrop, toEmail string) error
}
