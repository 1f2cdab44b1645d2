package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"phonescout/internal/catalog"
	"phonescout/internal/model"
	"phonescout/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// searchResultItem 搜索接口返回的单个条目。
type searchResultItem struct {
	Product model.Product `json:"product"`
	Score   int           `json:"score"`
}

// handleSearch 按筛选条件给商品打分排序。
//
// GET /search?category=phone&budget_max=800&os=android&brand=&min_ram=8&min_storage=128&camera_importance=1.5&limit=10
//
// 条件不合法返回 400，不进入打分；存储失败返回 500，不返回截断的部分结果。
func (s *Server) handleSearch(c *gin.Context) {
	start := time.Now()

	crit := catalog.Criteria{
		Category: c.Query("category"),
		OS:       c.Query("os"),
		Brand:    c.Query("brand"),
	}

	var parseErr error
	if crit.BudgetMax, parseErr = parseQueryFloat(c, "budget_max"); parseErr != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid budget_max"})
		return
	}
	if crit.MinRAM, parseErr = parseQueryFloat(c, "min_ram"); parseErr != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_ram"})
		return
	}
	if crit.MinStorage, parseErr = parseQueryFloat(c, "min_storage"); parseErr != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_storage"})
		return
	}
	if weight, err := parseQueryFloat(c, "camera_importance"); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera_importance"})
		return
	} else if weight != nil {
		crit.CameraImportance = *weight
	}

	results, err := catalog.Search(c.Request.Context(), s.catalog, crit)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidCriteria) {
			metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Error("search failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	limit := parseQueryInt(c, "limit", s.cfg.App.SearchLimit)
	if limit <= 0 || limit > s.cfg.App.CandidateLimit {
		limit = s.cfg.App.SearchLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, searchResultItem{
			Product: r.Product,
			Score:   catalog.DisplayScore(r.Score),
		})
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	c.JSON(http.StatusOK, gin.H{"results": items, "total": len(items)})
}

// handleListProducts 按品类/品牌粗筛商品列表。
//
// GET /products?category=phone&brand=acme&limit=50
func (s *Server) handleListProducts(c *gin.Context) {
	limit := parseQueryInt(c, "limit", s.cfg.App.CandidateLimit)
	products, err := s.catalog.ListCandidates(c.Request.Context(), catalog.CandidateFilter{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("list products failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// productDetail 商品详情接口返回的聚合视图。
type productDetail struct {
	Product  model.Product          `json:"product"`
	Variants []model.Variant        `json:"variants"`
	Offers   []model.Offer          `json:"offers"`
	Reviews  *catalog.ReviewSummary `json:"reviews,omitempty"`
}

// handleGetProduct 返回单个商品的详情：配置、报价与评测汇总。
//
// GET /products/:id
func (s *Server) handleGetProduct(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("get product failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get product failed"})
		return
	}

	variants, err := s.catalog.ListVariants(ctx, id)
	if err != nil {
		s.logger.Error("list variants failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list variants failed"})
		return
	}

	offers := []model.Offer{}
	for _, v := range variants {
		vo, err := s.catalog.ListOffers(ctx, v.ID)
		if err != nil {
			s.logger.Error("list offers failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list offers failed"})
			return
		}
		offers = append(offers, vo...)
	}

	summary, err := s.catalog.GetReviewSummary(ctx, id)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		s.logger.Error("get review summary failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get review summary failed"})
		return
	}

	c.JSON(http.StatusOK, productDetail{
		Product:  *product,
		Variants: variants,
		Offers:   offers,
		Reviews:  summary,
	})
}

// handleListCategories 返回品类及其商品数。
//
// GET /categories
func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.catalog.ListCategories(c.Request.Context())
	if err != nil {
		s.logger.Error("list categories failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// handleListOffers 返回某个配置的全部报价。
//
// GET /variants/:id/offers
func (s *Server) handleListOffers(c *gin.Context) {
	offers, err := s.catalog.ListOffers(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("list offers failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list offers failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}
