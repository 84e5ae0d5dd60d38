package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiere/salon/internal/config"
)

func TestSlugOrDerive(t *testing.T) {
	cases := []struct {
		name string
		slug string
		from string
		want string
	}{
		{name: "explicit slug wins", slug: "custom-slug", from: "Hair Styling", want: "custom-slug"},
		{name: "derived from name", slug: "", from: "Hair Styling", want: "hair-styling"},
		{name: "punctuation collapsed", slug: "", from: "Mani & Pedi!", want: "mani-pedi"},
		{name: "edges trimmed", slug: "", from: "  Facials  ", want: "facials"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, slugOrDerive(tc.slug, tc.from))
		})
	}
}

func TestCatalogPublishedListings(t *testing.T) {
	catalog := newMemoryCatalogStore()
	seedCatalog(catalog)

	cfg := &config.AppConfig{}
	svc := NewCatalogService(catalog, memoryServiceStore{parent: catalog}, nil, nil, cfg, zerolog.Nop())

	categories, err := svc.PublishedCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "cat-1", categories[0].ID)

	services, err := svc.PublishedServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	catalog := newMemoryCatalogStore()
	cfg := &config.AppConfig{}
	svc := NewCatalogService(catalog, memoryServiceStore{parent: catalog}, nil, nil, cfg, zerolog.Nop())

	category, err := svc.CreateCategory(context.Background(), CategoryInput{
		Name:        "Nail Care",
		IsPublished: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, category.ID)
	assert.Equal(t, "nail-care", category.Slug)

	stored, err := catalog.GetByID(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Equal(t, category, stored)
}
