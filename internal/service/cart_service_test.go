package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
)

type memoryCatalogStore struct {
	categories map[string]models.Category
	services   map[string]models.Service
}

func newMemoryCatalogStore() *memoryCatalogStore {
	return &memoryCatalogStore{
		categories: map[string]models.Category{},
		services:   map[string]models.Service{},
	}
}

func (s *memoryCatalogStore) Create(_ context.Context, category models.Category) error {
	s.categories[category.ID] = category
	return nil
}

func (s *memoryCatalogStore) GetByID(_ context.Context, id string) (models.Category, error) {
	category, ok := s.categories[id]
	if !ok {
		return models.Category{}, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (s *memoryCatalogStore) List(_ context.Context, publishedOnly bool) ([]models.Category, error) {
	out := make([]models.Category, 0, len(s.categories))
	for _, category := range s.categories {
		if publishedOnly && !category.IsPublished {
			continue
		}
		out = append(out, category)
	}
	return out, nil
}

func (s *memoryCatalogStore) Update(_ context.Context, category models.Category) error {
	s.categories[category.ID] = category
	return nil
}

func (s *memoryCatalogStore) Delete(_ context.Context, id string) error {
	delete(s.categories, id)
	return nil
}

type memoryServiceStore struct {
	parent *memoryCatalogStore
}

func (s memoryServiceStore) Create(_ context.Context, service models.Service) error {
	s.parent.services[service.ID] = service
	return nil
}

func (s memoryServiceStore) GetByID(_ context.Context, id string) (models.Service, error) {
	service, ok := s.parent.services[id]
	if !ok {
		return models.Service{}, repository.ErrServiceNotFound
	}
	return service, nil
}

func (s memoryServiceStore) List(_ context.Context, publishedOnly bool) ([]models.Service, error) {
	out := make([]models.Service, 0, len(s.parent.services))
	for _, service := range s.parent.services {
		if publishedOnly && !service.IsPublished {
			continue
		}
		out = append(out, service)
	}
	return out, nil
}

func (s memoryServiceStore) Update(_ context.Context, service models.Service) error {
	s.parent.services[service.ID] = service
	return nil
}

func (s memoryServiceStore) Delete(_ context.Context, id string) error {
	delete(s.parent.services, id)
	return nil
}

type memoryCartStore struct {
	items map[string]models.CartItem
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{items: map[string]models.CartItem{}}
}

func cartKey(userEmail string, serviceID string) string {
	return userEmail + "|" + serviceID
}

func (s *memoryCartStore) Upsert(_ context.Context, item models.CartItem) error {
	key := cartKey(item.UserEmail, item.ServiceID)
	if existing, ok := s.items[key]; ok {
		existing.Quantity += item.Quantity
		s.items[key] = existing
		return nil
	}
	s.items[key] = item
	return nil
}

func (s *memoryCartStore) UpdateQuantity(_ context.Context, userEmail string, serviceID string, quantity int) error {
	key := cartKey(userEmail, serviceID)
	item, ok := s.items[key]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	s.items[key] = item
	return nil
}

func (s *memoryCartStore) Delete(_ context.Context, userEmail string, serviceID string) error {
	delete(s.items, cartKey(userEmail, serviceID))
	return nil
}

func (s *memoryCartStore) ListByUser(_ context.Context, userEmail string) ([]models.CartEntry, error) {
	out := []models.CartEntry{}
	for _, item := range s.items {
		if item.UserEmail != userEmail {
			continue
		}
		out = append(out, models.CartEntry{
			CartItem: models.CartItem{
				ServiceID: item.ServiceID,
				Quantity:  item.Quantity,
			},
		})
	}
	return out, nil
}

func seedCatalog(store *memoryCatalogStore) {
	store.categories["cat-1"] = models.Category{ID: "cat-1", Name: "Hair", IsPublished: true}
	store.categories["cat-2"] = models.Category{ID: "cat-2", Name: "Hidden", IsPublished: false}
	store.services["svc-1"] = models.Service{ID: "svc-1", CategoryID: "cat-1", Name: "Cut", IsPublished: true}
	store.services["svc-2"] = models.Service{ID: "svc-2", CategoryID: "cat-1", Name: "Draft", IsPublished: false}
	store.services["svc-3"] = models.Service{ID: "svc-3", CategoryID: "cat-2", Name: "Orphan", IsPublished: true}
}

func newTestCartService() (*CartService, *memoryCartStore) {
	catalog := newMemoryCatalogStore()
	seedCatalog(catalog)
	cart := newMemoryCartStore()
	svc := NewCartService(cart, memoryServiceStore{parent: catalog}, catalog, zerolog.Nop())
	return svc, cart
}

func TestCartAdd(t *testing.T) {
	cases := []struct {
		name      string
		serviceID string
		wantErr   error
	}{
		{name: "published service", serviceID: "svc-1"},
		{name: "unknown service", serviceID: "svc-404", wantErr: ErrServiceUnavailable},
		{name: "unpublished service", serviceID: "svc-2", wantErr: ErrServiceUnavailable},
		{name: "published service in unpublished category", serviceID: "svc-3", wantErr: ErrServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestCartService()
			err := svc.Add(context.Background(), "jane@example.com", tc.serviceID, 1)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			entries, err := svc.List(context.Background(), "jane@example.com")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.serviceID, entries[0].ServiceID)
		})
	}
}

func TestCartAddAccumulatesQuantity(t *testing.T) {
	svc, _ := newTestCartService()

	require.NoError(t, svc.Add(context.Background(), "jane@example.com", "svc-1", 2))
	require.NoError(t, svc.Add(context.Background(), "jane@example.com", "svc-1", 3))

	entries, err := svc.List(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Quantity)
}

func TestCartAddClampsQuantity(t *testing.T) {
	svc, _ := newTestCartService()

	require.NoError(t, svc.Add(context.Background(), "jane@example.com", "svc-1", 0))

	entries, err := svc.List(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Quantity)
}

func TestCartUpdateQuantity(t *testing.T) {
	svc, _ := newTestCartService()
	require.NoError(t, svc.Add(context.Background(), "jane@example.com", "svc-1", 1))

	require.NoError(t, svc.UpdateQuantity(context.Background(), "jane@example.com", "svc-1", 4))

	entries, err := svc.List(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Quantity)

	assert.Error(t, svc.UpdateQuantity(context.Background(), "jane@example.com", "svc-1", 0))
}

func TestCartRemove(t *testing.T) {
	svc, _ := newTestCartService()
	require.NoError(t, svc.Add(context.Background(), "jane@example.com", "svc-1", 1))

	require.NoError(t, svc.Remove(context.Background(), "jane@example.com", "svc-1"))

	entries, err := svc.List(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
