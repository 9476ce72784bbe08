package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_ParsesAndResolvesAgainstFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/colleges/list/", http.StatusFound)
	})
	mux.HandleFunc("/colleges/list/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`<html><body><a class="next" href="?page=2">next</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{UserAgent: "test-agent", Timeout: time.Second})
	doc, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/colleges/list/", doc.URL)
	assert.Equal(t, []string{srv.URL + "/colleges/list/?page=2"}, doc.Links("a.next"))
}

func TestHTTPFetcher_StatusIsAFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second})
	doc, err := f.Fetch(context.Background(), srv.URL)

	assert.Nil(t, doc)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.True(t, IsFetchError(err))
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<html><title>ok</title></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, MaxRetries: 2, RetryBackoff: time.Millisecond})
	doc, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("title").Text())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, srv.URL)
	assert.True(t, IsFetchError(err))
}

func TestHTTPFetcher_RefusesRedirectOffAllowList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://elsewhere.example.org/", http.StatusFound)
	}))
	defer srv.Close()

	allow, err := NewAllowList("127.0.0.1")
	require.NoError(t, err)
	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, Filter: allow})
	_, err = f.Fetch(context.Background(), srv.URL)
	assert.True(t, IsFetchError(err))
}
