package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PropertyListing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onePage = `{"data":[{"id":"p-1","idOwner":"o-1","name":"Loft","addressProperty":"Main St 1","priceProperty":120000,"images":[]}],
"total":25,"page":2,"pageSize":12,"totalPages":3,"hasNextPage":true,"hasPreviousPage":true,"isLastPage":false}`

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestClient_FetchPage_BuildsRequest(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(onePage))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/api/")
	q := domain.Query{
		Filters: domain.Filters{Name: strPtr("loft"), Address: strPtr(""), MaxPrice: floatPtr(500000)},
		Sort:    domain.Sort{By: domain.SortByPrice, Dir: domain.SortDirDesc},
	}.WithPage(2, 12)

	page, err := client.FetchPage(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "/api/properties", gotPath)
	assert.Equal(t, []string{"loft"}, gotQuery["name"])
	assert.NotContains(t, gotQuery, "address")
	assert.NotContains(t, gotQuery, "minPrice")
	assert.Equal(t, []string{"500000"}, gotQuery["maxPrice"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"price"}, gotQuery["sortBy"])
	assert.Equal(t, []string{"desc"}, gotQuery["sortDir"])

	assert.Equal(t, 2, page.Page)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Main St 1", page.Data[0].Address)
}

func TestClient_FetchPage_ValidationSendsNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(0, 12))

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestClient_FetchPage_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestClient_FetchPage_NoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_FetchPage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(onePage))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL, &http.Client{Timeout: 20 * time.Millisecond})
	_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestClient_CircuitBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))
		require.Error(t, err)
	}

	_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "open breaker must not reach the server")
}

func TestClient_CircuitBreaker_IgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	for i := 0; i < 8; i++ {
		_, err := client.FetchPage(context.Background(), domain.Query{}.WithPage(1, 12))
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
		assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
	}
}

func TestClient_GetProperty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/properties/p-1":
			w.Write([]byte(`{"id":"p-1","idOwner":"o-1","name":"Loft","addressProperty":"Main St 1","priceProperty":120000,
"owner":{"idOwner":"o-1","name":"Ana","address":"x","photo":"","birthday":"1990-01-01T00:00:00"},
"images":[],"traces":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	detail, err := client.GetProperty(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", detail.Owner.Name)
	assert.NotNil(t, detail.Traces)

	_, err = client.GetProperty(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	_, err = client.GetProperty(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestClient_GetProperty_CollapsesConcurrentLookups(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`{"id":"p-1","idOwner":"o-1","name":"Loft","addressProperty":"a","priceProperty":1,"images":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetProperty(context.Background(), "p-1")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
