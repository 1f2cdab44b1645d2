package api

import (
	"errors"
	"log/slog"
	"net/http"

	"phonescout/internal/catalog"
	"phonescout/internal/pkg/metrics"
	"phonescout/internal/session"

	"github.com/gin-gonic/gin"
)

// handleCreateSession 新建一个空的对比会话。
//
// POST /compare/session
func (s *Server) handleCreateSession(c *gin.Context) {
	id, err := s.sessions.Create(c.Request.Context())
	if err != nil {
		s.logger.Error("create session failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id, "max_products": session.MaxProducts})
}

type sessionAddRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// handleSessionAdd 向会话加入一个商品。
//
// POST /compare/session/:id/products
//
// 会话满返回 409 而不是挤掉最旧的；重复加入是成功的空操作。
func (s *Server) handleSessionAdd(c *gin.Context) {
	var req sessionAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.catalog.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("get product failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get product failed"})
		return
	}

	switch err := s.sessions.Add(ctx, c.Param("id"), req.ProductID); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"added": req.ProductID})
	case errors.Is(err, session.ErrSessionFull):
		metrics.ComparisonSessionFullTotal.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "comparison session full"})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		s.logger.Error("session add failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session add failed"})
	}
}

// handleSessionRemove 从会话移除一个商品。移除未加入的商品同样成功。
//
// DELETE /compare/session/:id/products/:productID
func (s *Server) handleSessionRemove(c *gin.Context) {
	err := s.sessions.Remove(c.Request.Context(), c.Param("id"), c.Param("productID"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"removed": c.Param("productID")})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		s.logger.Error("session remove failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session remove failed"})
	}
}

// handleSessionClear 清空会话，保留会话本身。
//
// DELETE /compare/session/:id/products
func (s *Server) handleSessionClear(c *gin.Context) {
	err := s.sessions.Clear(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		s.logger.Error("session clear failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session clear failed"})
	}
}

// handleGetComparison 构建并返回会话的对比表。
//
// GET /compare/session/:id
//
// 已消失的商品在表中就地跳过，不影响其余商品。
func (s *Server) handleGetComparison(c *gin.Context) {
	ctx := c.Request.Context()
	ids, err := s.sessions.Products(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.logger.Error("load session failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}

	table, err := catalog.BuildComparison(ctx, ids, s.catalog)
	if err != nil {
		s.logger.Error("build comparison failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "build comparison failed"})
		return
	}
	c.JSON(http.StatusOK, table)
}
