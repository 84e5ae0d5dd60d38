package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/ids"
	"lumiere/salon/internal/media/sniffer"
	"lumiere/salon/internal/models"
	"lumiere/salon/internal/storage"
)

var ErrInvalidImage = errors.New("unsupported image format")

const (
	cacheKeyCategories = "catalog:categories"
	cacheKeyServices   = "catalog:services"
)

// CategoryStore and ServiceStore are the repository slices the catalog
// flows need; the pgx repositories satisfy them.
type CategoryStore interface {
	Create(ctx context.Context, category models.Category) error
	GetByID(ctx context.Context, id string) (models.Category, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Category, error)
	Update(ctx context.Context, category models.Category) error
	Delete(ctx context.Context, id string) error
}

type ServiceStore interface {
	Create(ctx context.Context, service models.Service) error
	GetByID(ctx context.Context, id string) (models.Service, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Service, error)
	Update(ctx context.Context, service models.Service) error
	Delete(ctx context.Context, id string) error
}

type CatalogService struct {
	categories CategoryStore
	services   ServiceStore
	store      *storage.ObjectStore
	cache      *redis.Client
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewCatalogService(
	categories CategoryStore,
	services ServiceStore,
	store *storage.ObjectStore,
	cache *redis.Client,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		services:   services,
		store:      store,
		cache:      cache,
		cfg:        cfg,
		log:        log,
	}
}

// PublishedCategories serves the public storefront list through the Redis
// cache; a miss falls back to Postgres and repopulates.
func (s *CatalogService) PublishedCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if s.cacheGet(ctx, cacheKeyCategories, &categories) {
		return categories, nil
	}

	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKeyCategories, categories)
	return categories, nil
}

func (s *CatalogService) PublishedServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if s.cacheGet(ctx, cacheKeyServices, &services) {
		return services, nil
	}

	services, err := s.services.List(ctx, true)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKeyServices, services)
	return services, nil
}

// WarmCache repopulates both public lists; the scheduler calls it hourly.
func (s *CatalogService) WarmCache(ctx context.Context) error {
	categories, err := s.categories.List(ctx, true)
	if err != nil {
		return err
	}
	services, err := s.services.List(ctx, true)
	if err != nil {
		return err
	}
	s.cacheSet(ctx, cacheKeyCategories, categories)
	s.cacheSet(ctx, cacheKeyServices, services)
	return nil
}

type CategoryInput struct {
	Name        string
	Slug        string
	SortOrder   int
	IsPublished bool
	Image       multipart.File
}

func (s *CatalogService) CreateCategory(ctx context.Context, input CategoryInput) (models.Category, error) {
	category := models.Category{
		ID:          ids.New(),
		Name:        input.Name,
		Slug:        slugOrDerive(input.Slug, input.Name),
		SortOrder:   input.SortOrder,
		IsPublished: input.IsPublished,
	}

	if input.Image != nil {
		url, err := s.uploadImage(ctx, "categories", category.ID, input.Image)
		if err != nil {
			return models.Category{}, err
		}
		category.ImageURL = url
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return models.Category{}, err
	}

	s.invalidate(ctx)
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return models.Category{}, err
	}

	category.Name = input.Name
	category.Slug = slugOrDerive(input.Slug, input.Name)
	category.SortOrder = input.SortOrder
	category.IsPublished = input.IsPublished

	if input.Image != nil {
		url, err := s.uploadImage(ctx, "categories", category.ID, input.Image)
		if err != nil {
			return models.Category{}, err
		}
		category.ImageURL = url
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return models.Category{}, err
	}

	s.invalidate(ctx)
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImages(ctx, "categories", id)
	s.invalidate(ctx)
	return nil
}

type ServiceInput struct {
	CategoryID  string
	Name        string
	Slug        string
	Description string
	PriceCents  int64
	DurationMin int
	IsPublished bool
	Image       multipart.File
}

func (s *CatalogService) CreateService(ctx context.Context, input ServiceInput) (models.Service, error) {
	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		return models.Service{}, err
	}

	service := models.Service{
		ID:          ids.New(),
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Slug:        slugOrDerive(input.Slug, input.Name),
		Description: input.Description,
		PriceCents:  input.PriceCents,
		DurationMin: input.DurationMin,
		IsPublished: input.IsPublished,
	}

	if input.Image != nil {
		url, err := s.uploadImage(ctx, "services", service.ID, input.Image)
		if err != nil {
			return models.Service{}, err
		}
		service.ImageURL = url
	}

	if err := s.services.Create(ctx, service); err != nil {
		return models.Service{}, err
	}

	s.invalidate(ctx)
	return service, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id string, input ServiceInput) (models.Service, error) {
	service, err := s.services.GetByID(ctx, id)
	if err != nil {
		return models.Service{}, err
	}

	if input.CategoryID != "" && input.CategoryID != service.CategoryID {
		if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
			return models.Service{}, err
		}
		service.CategoryID = input.CategoryID
	}

	service.Name = input.Name
	service.Slug = slugOrDerive(input.Slug, input.Name)
	service.Description = input.Description
	service.PriceCents = input.PriceCents
	service.DurationMin = input.DurationMin
	service.IsPublished = input.IsPublished

	if input.Image != nil {
		url, err := s.uploadImage(ctx, "services", service.ID, input.Image)
		if err != nil {
			return models.Service{}, err
		}
		service.ImageURL = url
	}

	if err := s.services.Update(ctx, service); err != nil {
		return models.Service{}, err
	}

	s.invalidate(ctx)
	return service, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id string) error {
	if err := s.services.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImages(ctx, "services", id)
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) uploadImage(ctx context.Context, prefix string, entityID string, file multipart.File) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrInvalidImage
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := sniffer.DetectHead(head)
	if err != nil {
		return "", ErrInvalidImage
	}

	key := fmt.Sprintf("%s/%s_%d.%s", prefix, entityID, time.Now().Unix(), result.Type)
	url, err := s.store.PutImage(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (s *CatalogService) removeImages(ctx context.Context, prefix string, entityID string) {
	// Best effort: the object key embeds an upload timestamp, so stale
	// images are also swept by bucket lifecycle rules.
	key := fmt.Sprintf("%s/%s", prefix, entityID)
	if err := s.store.RemoveImage(ctx, key); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("remove image")
	}
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.Catalog.CacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKeyCategories, cacheKeyServices).Err(); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidate failed")
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugOrDerive(slug string, name string) string {
	if slug != "" {
		return slug
	}
	derived := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(derived, "-")
}
