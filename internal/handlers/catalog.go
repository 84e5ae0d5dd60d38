package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/models"
)

type categoryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type serviceResponse struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"durationMin,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

func toServiceResponse(service models.Service) serviceResponse {
	return serviceResponse{
		ID:          service.ID,
		CategoryID:  service.CategoryID,
		Name:        service.Name,
		Slug:        service.Slug,
		Description: service.Description,
		Price:       float64(service.PriceCents) / 100,
		DurationMin: service.DurationMin,
		ImageURL:    service.ImageURL,
	}
}

// ListCategories is the public storefront list: published only.
func (h HandlerSet) ListCategories(c *gin.Context) {
	categories, err := h.catalog.PublishedCategories(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list categories failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		resp = append(resp, categoryResponse{
			ID:       category.ID,
			Name:     category.Name,
			Slug:     category.Slug,
			ImageURL: category.ImageURL,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) ListServices(c *gin.Context) {
	services, err := h.catalog.PublishedServices(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list services failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]serviceResponse, 0, len(services))
	for _, service := range services {
		resp = append(resp, toServiceResponse(service))
	}

	c.JSON(http.StatusOK, resp)
}
