package domain

import (
	"time"
)

// Property is a single listing item as served by the properties API.
type Property struct {
	ID           string  `json:"id" bson:"_id"`
	OwnerID      string  `json:"owner_id" bson:"owner_id"`
	Name         string  `json:"name" bson:"name"`
	Address      string  `json:"address" bson:"address"`
	Price        float64 `json:"price" bson:"price"`
	CodeInternal string  `json:"code_internal" bson:"code_internal"`
	Year         int     `json:"year" bson:"year"`
	Images       []Image `json:"images" bson:"images"`
	Owner        *Owner  `json:"owner,omitempty" bson:"owner,omitempty"`
	Traces       []Trace `json:"traces,omitempty" bson:"traces,omitempty"`
}

// EnabledImages returns the images eligible for display, keeping display order.
func (p *Property) EnabledImages() []Image {
	enabled := make([]Image, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Enabled {
			enabled = append(enabled, img)
		}
	}
	return enabled
}

// CoverImage returns the first enabled image, if any.
func (p *Property) CoverImage() (Image, bool) {
	for _, img := range p.Images {
		if img.Enabled {
			return img, true
		}
	}
	return Image{}, false
}

type Image struct {
	ID         string `json:"id" bson:"id"`
	PropertyID string `json:"property_id" bson:"property_id"`
	URL        string `json:"url" bson:"url"`
	Enabled    bool   `json:"enabled" bson:"enabled"`
}

type Owner struct {
	ID       string    `json:"id" bson:"id"`
	Name     string    `json:"name" bson:"name"`
	Address  string    `json:"address" bson:"address"`
	Photo    string    `json:"photo" bson:"photo"`
	Birthday time.Time `json:"birthday" bson:"birthday"`
}

// Trace is a past sale of a property.
type Trace struct {
	ID         string    `json:"id" bson:"id"`
	PropertyID string    `json:"property_id" bson:"property_id"`
	DateSale   time.Time `json:"date_sale" bson:"date_sale"`
	Name       string    `json:"name" bson:"name"`
	Value      float64   `json:"value" bson:"value"`
	Tax        float64   `json:"tax" bson:"tax"`
}

// PropertyDetail is the detail view of a property. Owner and Traces are always populated.
type PropertyDetail struct {
	Property
}

// LastSale returns the most recent trace by sale date.
func (d *PropertyDetail) LastSale() (Trace, bool) {
	var last Trace
	found := false
	for _, t := range d.Traces {
		if !found || t.DateSale.After(last.DateSale) {
			last = t
			found = true
		}
	}
	return last, found
}
