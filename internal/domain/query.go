package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type SortBy string

const (
	SortByNone  SortBy = ""
	SortByPrice SortBy = "price"
	SortByName  SortBy = "name"
)

func (s SortBy) Valid() bool {
	return s == SortByPrice || s == SortByName
}

type SortDir string

const (
	SortDirNone SortDir = ""
	SortDirAsc  SortDir = "asc"
	SortDirDesc SortDir = "desc"
)

func (d SortDir) Valid() bool {
	return d == SortDirAsc || d == SortDirDesc
}

// Filters holds the active filter values. A nil field is unset.
type Filters struct {
	Name     *string  `json:"name,omitempty"`
	Address  *string  `json:"address,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Name == nil && f.Address == nil && f.MinPrice == nil && f.MaxPrice == nil
}

// Sort is the active sort. The zero value means server default order.
type Sort struct {
	By  SortBy  `json:"sortBy,omitempty"`
	Dir SortDir `json:"sortDir,omitempty"`
}

func (s Sort) IsZero() bool {
	return s.By == SortByNone && s.Dir == SortDirNone
}

// Query is the filter and sort part of a property search.
type Query struct {
	Filters Filters `json:"filters"`
	Sort    Sort    `json:"sort"`
}

// Equal reports whether both queries select the same result set in the same order.
func (q Query) Equal(o Query) bool {
	return eqString(q.Filters.Name, o.Filters.Name) &&
		eqString(q.Filters.Address, o.Filters.Address) &&
		eqFloat(q.Filters.MinPrice, o.Filters.MinPrice) &&
		eqFloat(q.Filters.MaxPrice, o.Filters.MaxPrice) &&
		q.Sort == o.Sort
}

// Clone returns a deep copy; the filter pointers of the copy are not shared.
func (q Query) Clone() Query {
	return Query{
		Filters: Filters{
			Name:     cloneString(q.Filters.Name),
			Address:  cloneString(q.Filters.Address),
			MinPrice: cloneFloat(q.Filters.MinPrice),
			MaxPrice: cloneFloat(q.Filters.MaxPrice),
		},
		Sort: q.Sort,
	}
}

// Key returns a deterministic hash of the query and page size.
// Two listings share a key iff they would request identical pages.
func (q Query) Key(pageSize int) string {
	hasher := sha256.New()
	hasher.Write([]byte("properties"))
	for _, part := range q.canonical() {
		hasher.Write([]byte{0})
		hasher.Write([]byte(part))
	}
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(pageSize)))
	return hex.EncodeToString(hasher.Sum(nil))
}

func (q Query) canonical() []string {
	return []string{
		"name=" + optString(q.Filters.Name),
		"address=" + optString(q.Filters.Address),
		"minPrice=" + optFloat(q.Filters.MinPrice),
		"maxPrice=" + optFloat(q.Filters.MaxPrice),
		"sortBy=" + string(q.Sort.By),
		"sortDir=" + string(q.Sort.Dir),
	}
}

// MaxPageSize bounds the page size of any page request.
const MaxPageSize = 100

// PageQuery is a Query bound to a specific page.
type PageQuery struct {
	Query
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// WithPage binds q to page and pageSize.
func (q Query) WithPage(page, pageSize int) PageQuery {
	return PageQuery{Query: q, Page: page, PageSize: pageSize}
}

// Validate checks the fetch contract of a page request.
func (q PageQuery) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}
	if q.PageSize < 1 {
		return fmt.Errorf("%w: pageSize must be >= 1, got %d", ErrInvalidQuery, q.PageSize)
	}
	if q.PageSize > MaxPageSize {
		return fmt.Errorf("%w: pageSize must be <= %d, got %d", ErrInvalidQuery, MaxPageSize, q.PageSize)
	}
	// The window end, Offset+PageSize, must fit in an int.
	if q.Page-1 > (math.MaxInt-q.PageSize)/q.PageSize {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, q.Page)
	}
	if q.Filters.MinPrice != nil && *q.Filters.MinPrice < 0 {
		return fmt.Errorf("%w: minPrice must be non-negative", ErrInvalidQuery)
	}
	if q.Filters.MaxPrice != nil && *q.Filters.MaxPrice < 0 {
		return fmt.Errorf("%w: maxPrice must be non-negative", ErrInvalidQuery)
	}
	if (q.Sort.By == SortByNone) != (q.Sort.Dir == SortDirNone) {
		return fmt.Errorf("%w: sortBy and sortDir must be set together", ErrInvalidQuery)
	}
	if q.Sort.By != SortByNone && !q.Sort.By.Valid() {
		return fmt.Errorf("%w: unknown sortBy %q", ErrInvalidQuery, q.Sort.By)
	}
	if q.Sort.Dir != SortDirNone && !q.Sort.Dir.Valid() {
		return fmt.Errorf("%w: unknown sortDir %q", ErrInvalidQuery, q.Sort.Dir)
	}
	return nil
}

// Values encodes the request as query parameters of GET /properties.
// Unset and empty string filters are omitted.
func (q PageQuery) Values() url.Values {
	v := url.Values{}
	if q.Filters.Name != nil && *q.Filters.Name != "" {
		v.Set("name", *q.Filters.Name)
	}
	if q.Filters.Address != nil && *q.Filters.Address != "" {
		v.Set("address", *q.Filters.Address)
	}
	if q.Filters.MinPrice != nil {
		v.Set("minPrice", optFloat(q.Filters.MinPrice))
	}
	if q.Filters.MaxPrice != nil {
		v.Set("maxPrice", optFloat(q.Filters.MaxPrice))
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Sort.By != SortByNone {
		v.Set("sortBy", string(q.Sort.By))
	}
	if q.Sort.Dir != SortDirNone {
		v.Set("sortDir", string(q.Sort.Dir))
	}
	return v
}

// ParsePageQuery is the inverse of Values. Missing page and pageSize fall back to the given defaults.
func ParsePageQuery(v url.Values, defaultPageSize int) (PageQuery, error) {
	q := PageQuery{Page: 1, PageSize: defaultPageSize}

	if s := v.Get("name"); s != "" {
		q.Filters.Name = &s
	}
	if s := v.Get("address"); s != "" {
		q.Filters.Address = &s
	}
	for key, dst := range map[string]**float64{"minPrice": &q.Filters.MinPrice, "maxPrice": &q.Filters.MaxPrice} {
		s := v.Get(key)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return PageQuery{}, fmt.Errorf("%w: %s is not a number", ErrInvalidQuery, key)
		}
		*dst = &f
	}
	for key, dst := range map[string]*int{"page": &q.Page, "pageSize": &q.PageSize} {
		s := v.Get(key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return PageQuery{}, fmt.Errorf("%w: %s is not an integer", ErrInvalidQuery, key)
		}
		*dst = n
	}
	q.Sort.By = SortBy(v.Get("sortBy"))
	q.Sort.Dir = SortDir(v.Get("sortDir"))

	return q, q.Validate()
}

// Matches reports whether p satisfies the filters. Text filters are
// case-insensitive substring matches; price bounds are inclusive.
func (f Filters) Matches(p *Property) bool {
	if f.Name != nil && *f.Name != "" && !containsFold(p.Name, *f.Name) {
		return false
	}
	if f.Address != nil && *f.Address != "" && !containsFold(p.Address, *f.Address) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

// SortProperties sorts items in place. Ties keep their relative order.
func SortProperties(items []Property, s Sort) {
	if s.By == SortByNone {
		return
	}
	desc := s.Dir == SortDirDesc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if desc {
			a, b = b, a
		}
		switch s.By {
		case SortByPrice:
			return a.Price < b.Price
		case SortByName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return false
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func optString(s *string) string {
	if s == nil {
		return "\x00unset"
	}
	return *s
}

func optFloat(f *float64) string {
	if f == nil {
		return "\x00unset"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
