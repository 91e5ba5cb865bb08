package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
)

func TestHTTPSource_Fetch(t *testing.T) {
	var gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"url":"https://example.com/p/1","title":"[WTS] Sennheiser HD600","posted_at":150,"price_usd":550},
			{"source":"avexchange","url":"https://example.com/p/2","title":"[WTS] Schiit Modi 3","posted_at":180,"sold":true}
		]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceOptions{Name: "headfi", Endpoint: srv.URL})
	got, err := src.Fetch(context.Background(), 100, 200)
	require.NoError(t, err)

	assert.Equal(t, "100", gotFrom)
	assert.Equal(t, "200", gotTo)
	require.Len(t, got, 2)

	assert.Equal(t, "headfi", got[0].Source, "adapter name fills a missing source")
	require.NotNil(t, got[0].PriceHint)
	assert.Equal(t, 550, *got[0].PriceHint)

	assert.Equal(t, "avexchange", got[1].Source, "feed-provided source wins")
	assert.True(t, got[1].SoldSignal)
}

func TestHTTPSource_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream busy", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"url":"https://example.com/p/1","title":"t","posted_at":150}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceOptions{Name: "headfi", Endpoint: srv.URL})
	got, err := src.Fetch(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSource_GivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceOptions{Name: "headfi", Endpoint: srv.URL})
	_, err := src.Fetch(context.Background(), 100, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source headfi")
}

func TestStubSource_WindowFilter(t *testing.T) {
	src := NewStubSource("stub", []*domain.RawListing{
		{Source: "stub", URL: "u1", Title: "in window", PostedAt: 150},
		{Source: "stub", URL: "u2", Title: "too old", PostedAt: 50},
		{Source: "stub", URL: "u3", Title: "too new", PostedAt: 300},
	})

	got, err := src.Fetch(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].URL)
}
