package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phonescout/internal/catalog"
	"phonescout/internal/model"

	"gorm.io/gorm/clause"
)

// FavoriteEntry 是收藏列表中的一项：商品加上收藏时间。
type FavoriteEntry struct {
	Product model.Product `json:"product"`
	AddedAt time.Time     `json:"added_at"`
}

// AddFavorite 收藏一个商品。重复收藏是成功的空操作；商品不存在返回
// catalog.ErrNotFound。收藏夹没有容量上限。
func (s *Store) AddFavorite(ctx context.Context, callerHash, productID string) error {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}
	fav := model.Favorite{CallerHash: callerHash, ProductID: productID}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fav).Error; err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite 取消收藏。未收藏时同样返回成功（幂等）。
func (s *Store) RemoveFavorite(ctx context.Context, callerHash, productID string) error {
	if err := s.db.WithContext(ctx).
		Where("caller_hash = ? AND product_id = ?", callerHash, productID).
		Delete(&model.Favorite{}).Error; err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ToggleFavorite 切换收藏状态，返回切换后是否处于收藏中。
func (s *Store) ToggleFavorite(ctx context.Context, callerHash, productID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("caller_hash = ? AND product_id = ?", callerHash, productID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count favorite: %w", err)
	}
	if count > 0 {
		return false, s.RemoveFavorite(ctx, callerHash, productID)
	}
	return true, s.AddFavorite(ctx, callerHash, productID)
}

// ListFavorites 返回访客的收藏列表，按收藏时间倒序。
//
// 已从存储中消失的商品就地跳过，收藏记录保留。
func (s *Store) ListFavorites(ctx context.Context, callerHash string) ([]FavoriteEntry, error) {
	favorites := []model.Favorite{}
	if err := s.db.WithContext(ctx).
		Where("caller_hash = ?", callerHash).
		Order("created_at DESC, id DESC").
		Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	entries := make([]FavoriteEntry, 0, len(favorites))
	for _, fav := range favorites {
		p, err := s.GetProduct(ctx, fav.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, FavoriteEntry{Product: *p, AddedAt: fav.CreatedAt})
	}
	return entries, nil
}

// SetAlertEmail 设置（或更新）访客的降价提醒邮箱。空邮箱表示退订。
func (s *Store) SetAlertEmail(ctx context.Context, callerHash, email string) error {
	if email == "" {
		if err := s.db.WithContext(ctx).
			Where("caller_hash = ?", callerHash).
			Delete(&model.AlertSubscription{}).Error; err != nil {
			return fmt.Errorf("delete alert subscription: %w", err)
		}
		return nil
	}
	sub := model.AlertSubscription{CallerHash: callerHash, Email: email}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "caller_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}).
		Create(&sub).Error; err != nil {
		return fmt.Errorf("set alert email: %w", err)
	}
	return nil
}

// AlertEmailsFor 返回收藏了某商品且订阅提醒的全部邮箱。
func (s *Store) AlertEmailsFor(ctx context.Context, productID string) ([]string, error) {
	emails := []string{}
	if err := s.db.WithContext(ctx).Model(&model.AlertSubscription{}).
		Joins("JOIN favorites ON favorites.caller_hash = alert_subscriptions.caller_hash").
		Where("favorites.product_id = ?", productID).
		Distinct().
		Pluck("alert_subscriptions.email", &emails).Error; err != nil {
		return nil, fmt.Errorf("list alert emails: %w", err)
	}
	return emails, nil
}
