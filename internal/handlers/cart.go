package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/middleware"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/service"
)

type cartEntryResponse struct {
	ServiceID   string    `json:"serviceId"`
	ServiceName string    `json:"serviceName"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (h HandlerSet) ListCart(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.cart.List(c.Request.Context(), claims.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("list cart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]cartEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, cartEntryResponse{
			ServiceID:   entry.ServiceID,
			ServiceName: entry.ServiceName,
			Price:       float64(entry.PriceCents) / 100,
			ImageURL:    entry.ImageURL,
			Quantity:    entry.Quantity,
			UpdatedAt:   entry.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

type addToCartRequest struct {
	ServiceID string `json:"serviceId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h HandlerSet) AddToCart(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Service ID is required"})
		return
	}

	if err := h.cart.Add(c.Request.Context(), claims.Email, req.ServiceID, req.Quantity); err != nil {
		if errors.Is(err, service.ErrServiceUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service not found or not published"})
			return
		}
		h.log.Error().Err(err).Msg("add to cart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusCreated)
}

type updateCartRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h HandlerSet) UpdateCartItem(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		return
	}

	err := h.cart.UpdateQuantity(c.Request.Context(), claims.Email, c.Param("serviceId"), req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}
		h.log.Error().Err(err).Msg("update cart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeleteCartItem(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.cart.Remove(c.Request.Context(), claims.Email, c.Param("serviceId")); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}
		h.log.Error().Err(err).Msg("delete cart item failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
