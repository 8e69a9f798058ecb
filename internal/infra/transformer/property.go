package transformer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PropertyListing/internal/domain"
)

// PagedResponse is the wire shape of GET /properties.
type PagedResponse struct {
	Data            []PropertyDTO `json:"data"`
	Total           int           `json:"total"`
	Page            int           `json:"page"`
	PageSize        int           `json:"pageSize"`
	TotalPages      int           `json:"totalPages"`
	HasNextPage     bool          `json:"hasNextPage"`
	HasPreviousPage bool          `json:"hasPreviousPage"`
	IsLastPage      bool          `json:"isLastPage"`
}

type PropertyDTO struct {
	ID              string     `json:"id"`
	IDOwner         string     `json:"idOwner"`
	Name            string     `json:"name"`
	AddressProperty string     `json:"addressProperty"`
	PriceProperty   float64    `json:"priceProperty"`
	CodeInternal    string     `json:"codeInternal,omitempty"`
	Year            int        `json:"year,omitempty"`
	Owner           *OwnerDTO  `json:"owner,omitempty"`
	Images          []ImageDTO `json:"images"`
	Traces          []TraceDTO `json:"traces,omitempty"`
}

type ImageDTO struct {
	IDPropertyImage string `json:"idPropertyImage"`
	IDProperty      string `json:"idProperty"`
	File            string `json:"file"`
	Enabled         bool   `json:"enabled"`
}

type OwnerDTO struct {
	IDOwner  string `json:"idOwner"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Photo    string `json:"photo"`
	Birthday string `json:"birthday"`
}

type TraceDTO struct {
	IDPropertyTrace string  `json:"idPropertyTrace"`
	IDProperty      string  `json:"idProperty"`
	DateSale        string  `json:"dateSale"`
	Name            string  `json:"name"`
	Value           float64 `json:"value"`
	Tax             float64 `json:"tax"`
}

// The backend serialises DateTime without an offset; those values are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// PropertyTransformer maps properties API payloads to domain types.
type PropertyTransformer struct{}

func NewPropertyTransformer() *PropertyTransformer {
	return &PropertyTransformer{}
}

func (t *PropertyTransformer) TransformPage(reader io.Reader) (*domain.Page, error) {
	var resp PagedResponse
	if err := json.NewDecoder(reader).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode properties page: %w", err)
	}

	items := make([]domain.Property, 0, len(resp.Data))
	for _, dto := range resp.Data {
		p, err := t.normalize(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}

	return &domain.Page{
		Data:            items,
		Page:            resp.Page,
		PageSize:        resp.PageSize,
		Total:           resp.Total,
		TotalPages:      resp.TotalPages,
		HasNextPage:     resp.HasNextPage,
		HasPreviousPage: resp.HasPreviousPage,
		IsLastPage:      resp.IsLastPage,
	}, nil
}

func (t *PropertyTransformer) TransformDetail(reader io.Reader) (*domain.PropertyDetail, error) {
	var dto PropertyDTO
	if err := json.NewDecoder(reader).Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode property detail: %w", err)
	}
	p, err := t.normalize(dto)
	if err != nil {
		return nil, err
	}
	if p.Owner == nil {
		p.Owner = &domain.Owner{ID: p.OwnerID}
	}
	if p.Traces == nil {
		p.Traces = []domain.Trace{}
	}
	return &domain.PropertyDetail{Property: p}, nil
}

func (t *PropertyTransformer) normalize(dto PropertyDTO) (domain.Property, error) {
	images := make([]domain.Image, len(dto.Images))
	for i, img := range dto.Images {
		images[i] = domain.Image{
			ID:         img.IDPropertyImage,
			PropertyID: img.IDProperty,
			URL:        img.File,
			Enabled:    img.Enabled,
		}
	}

	p := domain.Property{
		ID:           dto.ID,
		OwnerID:      dto.IDOwner,
		Name:         dto.Name,
		Address:      dto.AddressProperty,
		Price:        dto.PriceProperty,
		CodeInternal: dto.CodeInternal,
		Year:         dto.Year,
		Images:       images,
	}

	if dto.Owner != nil {
		birthday, err := ParseDate(dto.Owner.Birthday)
		if err != nil {
			return domain.Property{}, fmt.Errorf("property %s: owner birthday: %w", dto.ID, err)
		}
		p.Owner = &domain.Owner{
			ID:       dto.Owner.IDOwner,
			Name:     dto.Owner.Name,
			Address:  dto.Owner.Address,
			Photo:    dto.Owner.Photo,
			Birthday: birthday,
		}
	}

	if dto.Traces != nil {
		p.Traces = make([]domain.Trace, len(dto.Traces))
		for i, tr := range dto.Traces {
			sold, err := ParseDate(tr.DateSale)
			if err != nil {
				return domain.Property{}, fmt.Errorf("property %s: trace %s: %w", dto.ID, tr.IDPropertyTrace, err)
			}
			p.Traces[i] = domain.Trace{
				ID:         tr.IDPropertyTrace,
				PropertyID: tr.IDProperty,
				DateSale:   sold,
				Name:       tr.Name,
				Value:      tr.Value,
				Tax:        tr.Tax,
			}
		}
	}

	return p, nil
}

// ParseDate accepts RFC 3339 timestamps as well as offset-less date-times and plain dates.
// An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// EncodePage is the inverse of TransformPage, used by the reference API.
func EncodePage(page *domain.Page) PagedResponse {
	data := make([]PropertyDTO, len(page.Data))
	for i := range page.Data {
		data[i] = FromDomain(&page.Data[i])
	}
	return PagedResponse{
		Data:            data,
		Total:           page.Total,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalPages:      page.TotalPages,
		HasNextPage:     page.HasNextPage,
		HasPreviousPage: page.HasPreviousPage,
		IsLastPage:      page.IsLastPage,
	}
}

func FromDomain(p *domain.Property) PropertyDTO {
	images := make([]ImageDTO, len(p.Images))
	for i, img := range p.Images {
		images[i] = ImageDTO{
			IDPropertyImage: img.ID,
			IDProperty:      img.PropertyID,
			File:            img.URL,
			Enabled:         img.Enabled,
		}
	}

	dto := PropertyDTO{
		ID:              p.ID,
		IDOwner:         p.OwnerID,
		Name:            p.Name,
		AddressProperty: p.Address,
		PriceProperty:   p.Price,
		CodeInternal:    p.CodeInternal,
		Year:            p.Year,
		Images:          images,
	}

	if p.Owner != nil {
		dto.Owner = &OwnerDTO{
			IDOwner:  p.Owner.ID,
			Name:     p.Owner.Name,
			Address:  p.Owner.Address,
			Photo:    p.Owner.Photo,
			Birthday: formatDate(p.Owner.Birthday),
		}
	}
	if p.Traces != nil {
		dto.Traces = make([]TraceDTO, len(p.Traces))
		for i, tr := range p.Traces {
			dto.Traces[i] = TraceDTO{
				IDPropertyTrace: tr.ID,
				IDProperty:      tr.PropertyID,
				DateSale:        formatDate(tr.DateSale),
				Name:            tr.Name,
				Value:           tr.Value,
				Tax:             tr.Tax,
			}
		}
	}
	return dto
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05")
}
