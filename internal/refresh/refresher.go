package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"phonescout/internal/model"
	"phonescout/internal/pkg/dedup"
	"phonescout/internal/pkg/metrics"
	"phonescout/internal/pkg/notify"
	"phonescout/internal/pkg/queue"

	"github.com/redis/go-redis/v9"
)

const bestPriceKeyPrefix = "phonescout:price:best:"

// Catalog 是刷新器需要的存储能力。
type Catalog interface {
	ListProductIDs(ctx context.Context) ([]string, error)
	ListVariants(ctx context.Context, productID string) ([]model.Variant, error)
	ListOffers(ctx context.Context, variantID string) ([]model.Offer, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpdatePriceSnapshot(ctx context.Context, productID string, min, max *float64) error
	AlertEmailsFor(ctx context.Context, productID string) ([]string, error)
}

// Refresher 周期性地重算每个商品的价格快照。
//
// 每轮把全部商品派发进 worker 池并发处理；同一商品在去重窗口内
// 只处理一次，调度周期重叠时不会重复劳动。检测到最优价下降时，
// 给收藏了该商品且订阅提醒的访客发邮件。
type Refresher struct {
	store    Catalog
	rdb      *redis.Client
	logger   *slog.Logger
	queue    *queue.Queue
	notifier notify.Notifier
	window   *dedup.Window
	interval time.Duration
}

// NewRefresher 创建刷新器。
//
// 参数:
//
//	store: 商品存储
//	rdb: Redis 客户端（最优价快照）
//	logger: 日志记录器
//	notifier: 降价提醒通知器
//	interval: 刷新周期
//	workers: worker 池大小
//	capacity: 队列容量
//	dedupWindow: 单商品去重窗口
func NewRefresher(store Catalog, rdb *redis.Client, logger *slog.Logger, notifier notify.Notifier,
	interval time.Duration, workers, capacity int, dedupWindow time.Duration) *Refresher {
	q := queue.NewQueue(logger, workers, capacity)
	q.SetErrorHandler(func(err error, job queue.Job) {
		logger.Error("refresh job failed", slog.String("error", err.Error()))
	})
	return &Refresher{
		store:    store,
		rdb:      rdb,
		logger:   logger,
		queue:    q,
		notifier: notifier,
		window:   dedup.NewWindow(rdb, dedupWindow),
		interval: interval,
	}
}

// Run 启动刷新循环，直到 ctx 取消。
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("refresher started",
		slog.String("interval", r.interval.String()),
		slog.Int("queue_capacity", r.queue.Cap()))

	r.queue.Start(ctx)
	r.dispatchAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping")
			if err := r.queue.ShutdownWithTimeout(30 * time.Second); err != nil {
				r.logger.Error("refresh queue shutdown timeout", slog.String("error", err.Error()))
			}
			return
		case <-ticker.C:
			r.dispatchAll(ctx)
		}
	}
}

// dispatchAll 把全部商品的刷新任务派发进队列。
func (r *Refresher) dispatchAll(ctx context.Context) {
	ids, err := r.store.ListProductIDs(ctx)
	if err != nil {
		r.logger.Error("list products for refresh failed", slog.String("error", err.Error()))
		return
	}
	for _, id := range ids {
		productID := id
		ok := r.queue.Enqueue(func(ctx context.Context) error {
			return r.RefreshProduct(ctx, productID)
		})
		if !ok {
			r.logger.Warn("refresh queue full, skip product", slog.String("product_id", productID))
		}
	}
}

// RefreshProduct 重算单个商品的价格快照并检测降价。
func (r *Refresher) RefreshProduct(ctx context.Context, productID string) error {
	claimed, err := r.window.Claim(ctx, productID)
	if err != nil {
		return fmt.Errorf("claim refresh window: %w", err)
	}
	if !claimed {
		return nil
	}

	variants, err := r.store.ListVariants(ctx, productID)
	if err != nil {
		return err
	}

	var (
		min, max *float64
		best     *model.Offer
	)
	for _, v := range variants {
		offers, err := r.store.ListOffers(ctx, v.ID)
		if err != nil {
			return err
		}
		for i := range offers {
			o := &offers[i]
			if o.Availability != model.AvailabilityInStock {
				continue
			}
			price := o.PriceAmount
			if min == nil || price < *min {
				p := price
				min = &p
			}
			if max == nil || price > *max {
				p := price
				max = &p
			}
			if best == nil || price < best.PriceAmount ||
				(price == best.PriceAmount && o.Retailer < best.Retailer) {
				best = o
			}
		}
	}

	if err := r.store.UpdatePriceSnapshot(ctx, productID, min, max); err != nil {
		return err
	}
	metrics.RefreshRunsTotal.Inc()

	if best != nil {
		if err := r.detectPriceDrop(ctx, productID, best); err != nil {
			return err
		}
	}
	return nil
}

// detectPriceDrop 比较 Redis 中上一轮的最优价，降价时发提醒。
func (r *Refresher) detectPriceDrop(ctx context.Context, productID string, best *model.Offer) error {
	key := bestPriceKeyPrefix + productID
	prev, err := r.rdb.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read best price snapshot: %w", err)
	}

	if err := r.rdb.Set(ctx, key, strconv.FormatFloat(best.PriceAmount, 'f', 2, 64), 0).Err(); err != nil {
		return fmt.Errorf("write best price snapshot: %w", err)
	}

	if prev == "" {
		return nil
	}
	prevPrice, err := strconv.ParseFloat(prev, 64)
	if err != nil || best.PriceAmount >= prevPrice {
		return nil
	}

	metrics.PriceDropsTotal.Inc()
	r.logger.Info("price drop detected",
		slog.String("product_id", productID),
		slog.Float64("old_price", prevPrice),
		slog.Float64("new_price", best.PriceAmount))

	product, err := r.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	emails, err := r.store.AlertEmailsFor(ctx, productID)
	if err != nil {
		return err
	}

	drop := notify.PriceDrop{
		Product:  product,
		OldPrice: prevPrice,
		NewPrice: best.PriceAmount,
		Retailer: best.Retailer,
		Currency: best.PriceCurrency,
	}
	for _, email := range emails {
		if err := r.notifier.SendPriceDrop(ctx, drop, email); err != nil {
			r.logger.Warn("send price drop notification failed",
				slog.String("to", email),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
