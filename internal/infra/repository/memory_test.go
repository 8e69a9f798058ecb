package repository_test

import (
	"context"
	"testing"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func sampleProperties() []domain.Property {
	return []domain.Property{
		{ID: "a", Name: "Villa Rosa", Address: "Calle 1, Cali", Price: 900000},
		{ID: "b", Name: "loft central", Address: "Carrera 7, Bogota", Price: 150000},
		{ID: "c", Name: "Casa Azul", Address: "Calle 9, Cali", Price: 300000},
		{ID: "d", Name: "Apartamento Norte", Address: "Calle 85, Bogota", Price: 150000},
		{ID: "e", Name: "Villa Verde", Address: "Km 4, Cartagena", Price: 1200000},
	}
}

func TestMemoryCatalog_FindPaging(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewMemoryCatalog()
	require.NoError(t, catalog.BulkUpsert(ctx, sampleProperties()))

	first, err := catalog.Find(ctx, domain.Query{}.WithPage(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNextPage)
	assert.Equal(t, []string{"a", "b"}, ids(first.Data))

	last, err := catalog.Find(ctx, domain.Query{}.WithPage(3, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, ids(last.Data))
	assert.False(t, last.HasNextPage)
	assert.True(t, last.IsLastPage)

	beyond, err := catalog.Find(ctx, domain.Query{}.WithPage(9, 2))
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
	assert.False(t, beyond.HasNextPage)
}

func TestMemoryCatalog_FindFiltersAndSort(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewMemoryCatalog()
	require.NoError(t, catalog.BulkUpsert(ctx, sampleProperties()))

	page, err := catalog.Find(ctx, domain.Query{
		Filters: domain.Filters{Address: strPtr("cali")},
	}.WithPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(page.Data))

	page, err = catalog.Find(ctx, domain.Query{
		Filters: domain.Filters{MinPrice: floatPtr(150000), MaxPrice: floatPtr(900000)},
		Sort:    domain.Sort{By: domain.SortByPrice, Dir: domain.SortDirDesc},
	}.WithPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(page.Data))

	page, err = catalog.Find(ctx, domain.Query{
		Sort: domain.Sort{By: domain.SortByName, Dir: domain.SortDirAsc},
	}.WithPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a", "e"}, ids(page.Data))

	empty, err := catalog.Find(ctx, domain.Query{Filters: domain.Filters{Name: strPtr("castle")}}.WithPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Data)
	assert.False(t, empty.HasNextPage)
}

func TestMemoryCatalog_FindRejectsInvalidQuery(t *testing.T) {
	_, err := repository.NewMemoryCatalog().Find(context.Background(), domain.Query{}.WithPage(0, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestMemoryCatalog_FindRejectsOutOfRangePage(t *testing.T) {
	catalog := repository.NewMemoryCatalog()
	require.NoError(t, catalog.BulkUpsert(context.Background(), sampleProperties()))

	_, err := catalog.Find(context.Background(), domain.Query{}.WithPage(1<<62+1, 3))
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = catalog.Find(context.Background(), domain.Query{}.WithPage(1, domain.MaxPageSize+1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestMemoryCatalog_GetAndUpsert(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewMemoryCatalog()
	require.NoError(t, catalog.BulkUpsert(ctx, sampleProperties()))

	require.NoError(t, catalog.BulkUpsert(ctx, []domain.Property{{ID: "a", Name: "Villa Rosa II", Price: 950000}}))
	count, err := catalog.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	p, err := catalog.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Villa Rosa II", p.Name)

	_, err = catalog.Get(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewMemoryCatalog()

	n, err := repository.SeedIfEmpty(ctx, catalog, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	n, err = repository.SeedIfEmpty(ctx, catalog, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a populated catalog is left alone")

	assert.Equal(t, repository.SeedProperties(3), repository.SeedProperties(3), "seed data is deterministic")

	p, err := catalog.Get(ctx, "prop-0001")
	require.NoError(t, err)
	require.NotNil(t, p.Owner)
	_, hasCover := p.CoverImage()
	assert.True(t, hasCover)
}

func ids(items []domain.Property) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}
