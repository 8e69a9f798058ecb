package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/PropertyListing/internal/domain"
)

var (
	seedKinds   = []string{"Apartment", "Loft", "Villa", "Townhouse", "Penthouse", "Cottage", "Studio", "Duplex"}
	seedPlaces  = []string{"del Mar", "Los Rosales", "El Poblado", "Chapinero", "La Candelaria", "Bocagrande", "Laureles", "Usaquen"}
	seedStreets = []string{"Calle 10", "Carrera 7", "Avenida 19", "Calle 85", "Transversal 5", "Diagonal 40"}
	seedCities  = []string{"Bogota", "Medellin", "Cartagena", "Cali", "Barranquilla"}
	seedOwners  = []string{"Ana Torres", "Luis Gomez", "Maria Rojas", "Carlos Perez", "Sofia Diaz", "Juan Herrera"}
)

// SeedProperties generates n deterministic properties with owners, images and sale history.
func SeedProperties(n int) []domain.Property {
	out := make([]domain.Property, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("prop-%04d", i+1)
		ownerIdx := i % len(seedOwners)
		ownerID := fmt.Sprintf("owner-%02d", ownerIdx+1)

		price := float64(80000 + (i*7919)%2920000)
		year := 1960 + (i*37)%64

		images := make([]domain.Image, 0, 3)
		for j := 0; j < 3; j++ {
			images = append(images, domain.Image{
				ID:         fmt.Sprintf("%s-img-%d", id, j+1),
				PropertyID: id,
				URL:        fmt.Sprintf("https://images.example.com/properties/%s/%d.jpg", id, j+1),
				// Every fifth property has its first image disabled.
				Enabled: !(j == 0 && i%5 == 0),
			})
		}

		traces := make([]domain.Trace, 0, 2)
		for k := 0; k < i%3; k++ {
			sold := time.Date(2005+(i+k*6)%18, time.Month(1+(i+k)%12), 1+(i*3)%28, 0, 0, 0, 0, time.UTC)
			value := price * (0.6 + 0.1*float64(k))
			traces = append(traces, domain.Trace{
				ID:         fmt.Sprintf("%s-trace-%d", id, k+1),
				PropertyID: id,
				DateSale:   sold,
				Name:       fmt.Sprintf("Sale %d", k+1),
				Value:      value,
				Tax:        value * 0.03,
			})
		}

		out = append(out, domain.Property{
			ID:           id,
			OwnerID:      ownerID,
			Name:         fmt.Sprintf("%s %s", seedKinds[i%len(seedKinds)], seedPlaces[(i/len(seedKinds))%len(seedPlaces)]),
			Address:      fmt.Sprintf("%s #%d-%d, %s", seedStreets[i%len(seedStreets)], 10+i%90, 1+i%50, seedCities[i%len(seedCities)]),
			Price:        price,
			CodeInternal: fmt.Sprintf("CI-%05d", 10000+i),
			Year:         year,
			Images:       images,
			Owner: &domain.Owner{
				ID:       ownerID,
				Name:     seedOwners[ownerIdx],
				Address:  seedCities[ownerIdx%len(seedCities)],
				Photo:    fmt.Sprintf("https://images.example.com/owners/%s.jpg", ownerID),
				Birthday: time.Date(1960+ownerIdx*5, time.Month(1+ownerIdx), 10+ownerIdx, 0, 0, 0, 0, time.UTC),
			},
			Traces: traces,
		})
	}
	return out
}

// SeedIfEmpty fills an empty catalog with n generated properties and reports how many were written.
func SeedIfEmpty(ctx context.Context, catalog domain.Catalog, n int) (int, error) {
	count, err := catalog.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 || n <= 0 {
		return 0, nil
	}
	if err := catalog.BulkUpsert(ctx, SeedProperties(n)); err != nil {
		return 0, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return n, nil
}
