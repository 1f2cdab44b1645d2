package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"phonescout/internal/api/middleware"
	"phonescout/internal/catalog"

	"github.com/gin-gonic/gin"
)

type favoriteRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// handleListFavorites 返回当前访客的收藏列表，按收藏时间倒序。
//
// GET /favorites
func (s *Server) handleListFavorites(c *gin.Context) {
	entries, err := s.favorites.ListFavorites(c.Request.Context(), middleware.CallerHash(c))
	if err != nil {
		s.logger.Error("list favorites failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list favorites failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": entries, "total": len(entries)})
}

// handleAddFavorite 收藏一个商品。重复收藏是成功的空操作。
//
// POST /favorites
func (s *Server) handleAddFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.favorites.AddFavorite(c.Request.Context(), middleware.CallerHash(c), req.ProductID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"favorited": true})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		s.logger.Error("add favorite failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add favorite failed"})
	}
}

// handleToggleFavorite 切换收藏状态，返回切换后的状态。
//
// POST /favorites/toggle
func (s *Server) handleToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favorited, err := s.favorites.ToggleFavorite(c.Request.Context(), middleware.CallerHash(c), req.ProductID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"favorited": favorited})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		s.logger.Error("toggle favorite failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle favorite failed"})
	}
}

// handleRemoveFavorite 取消收藏。未收藏时同样返回成功。
//
// DELETE /favorites/:productID
func (s *Server) handleRemoveFavorite(c *gin.Context) {
	if err := s.favorites.RemoveFavorite(c.Request.Context(), middleware.CallerHash(c), c.Param("productID")); err != nil {
		s.logger.Error("remove favorite failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove favorite failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": false})
}

type alertEmailRequest struct {
	Email string `json:"email"`
}

// handleSetAlertEmail 设置降价提醒邮箱，空邮箱表示退订。
//
// PUT /favorites/alert
func (s *Server) handleSetAlertEmail(c *gin.Context) {
	var req alertEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	if err := s.favorites.SetAlertEmail(c.Request.Context(), middleware.CallerHash(c), email); err != nil {
		s.logger.Error("set alert email failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set alert email failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": email != ""})
}
