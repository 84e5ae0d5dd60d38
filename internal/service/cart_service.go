package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"lumiere/salon/internal/ids"
	"lumiere/salon/internal/models"
)

var ErrServiceUnavailable = errors.New("service not found or not published")

type CartStore interface {
	Upsert(ctx context.Context, item models.CartItem) error
	UpdateQuantity(ctx context.Context, userEmail string, serviceID string, quantity int) error
	Delete(ctx context.Context, userEmail string, serviceID string) error
	ListByUser(ctx context.Context, userEmail string) ([]models.CartEntry, error)
}

type CartService struct {
	cart       CartStore
	services   ServiceStore
	categories CategoryStore
	log        zerolog.Logger
}

func NewCartService(cart CartStore, services ServiceStore, categories CategoryStore, log zerolog.Logger) *CartService {
	return &CartService{
		cart:       cart,
		services:   services,
		categories: categories,
		log:        log,
	}
}

func (s *CartService) List(ctx context.Context, userEmail string) ([]models.CartEntry, error) {
	return s.cart.ListByUser(ctx, userEmail)
}

// Add puts a published service into the cart. Both the service and its
// category must be published; anything else reads as unavailable.
func (s *CartService) Add(ctx context.Context, userEmail string, serviceID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	service, err := s.services.GetByID(ctx, serviceID)
	if err != nil || !service.IsPublished {
		return ErrServiceUnavailable
	}

	category, err := s.categories.GetByID(ctx, service.CategoryID)
	if err != nil || !category.IsPublished {
		return ErrServiceUnavailable
	}

	return s.cart.Upsert(ctx, models.CartItem{
		ID:        ids.New(),
		UserEmail: userEmail,
		ServiceID: serviceID,
		Quantity:  quantity,
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userEmail string, serviceID string, quantity int) error {
	if quantity < 1 {
		return errors.New("quantity must be at least 1")
	}
	return s.cart.UpdateQuantity(ctx, userEmail, serviceID, quantity)
}

func (s *CartService) Remove(ctx context.Context, userEmail string, serviceID string) error {
	return s.cart.Delete(ctx, userEmail, serviceID)
}
