package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stremio-cineby/pkg/stremio"
)

type fakeAddonService struct {
	catalog func(ctx context.Context, contentType, catalogID string, extra CatalogExtra) ([]stremio.Meta, error)
	meta    func(ctx context.Context, contentType string, upstreamID int) (*stremio.Meta, error)
	streams func(ctx context.Context, contentType string, upstreamID, season, episode int) ([]stremio.Stream, error)
}

func (f *fakeAddonService) GetCatalog(ctx context.Context, contentType, catalogID string, extra CatalogExtra) ([]stremio.Meta, error) {
	return f.catalog(ctx, contentType, catalogID, extra)
}

func (f *fakeAddonService) GetMeta(ctx context.Context, contentType string, upstreamID int) (*stremio.Meta, error) {
	return f.meta(ctx, contentType, upstreamID)
}

func (f *fakeAddonService) GetStreams(ctx context.Context, contentType string, upstreamID, season, episode int) ([]stremio.Stream, error) {
	return f.streams(ctx, contentType, upstreamID, season, episode)
}

func (f *fakeAddonService) BroadcastStats(func(stats *Stats) error) error { return nil }

func (f *fakeAddonService) StartPollingStats(time.Duration) {}

func (f *fakeAddonService) ServeHTTP(http.ResponseWriter, *http.Request) {}

func newTestRouter(t *testing.T, svc AddonService) *chi.Mux {
	t.Helper()

	app, err := NewApp(svc, "http://127.0.0.1:7015")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/manifest.json", app.ManifestHandler)
	r.Get("/catalog/{type}/{id}", app.CatalogHandler)
	r.Get("/catalog/{type}/{id}/{extra}", app.CatalogHandler)
	r.Get("/meta/{type}/{id}", app.MetaHandler)
	r.Get("/stream/{type}/{id}", app.StreamHandler)
	r.Get("/health", app.HealthHandler)
	return r
}

func TestManifestHandler(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got stremio.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "app.cineby.stremio", got.ID)
	assert.ElementsMatch(t, []string{"catalog", "meta", "stream"}, got.Resources)
	assert.Len(t, got.Catalogs, 6)
}

func TestCatalogHandlerInvalidType(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/channel/cineby-trending.json", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerUnknownCatalog(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/movie/cineby-other.json", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerExtraPathSegment(t *testing.T) {
	var gotExtra CatalogExtra
	svc := &fakeAddonService{
		catalog: func(_ context.Context, contentType, catalogID string, extra CatalogExtra) ([]stremio.Meta, error) {
			assert.Equal(t, "movie", contentType)
			assert.Equal(t, "cineby-movies", catalogID)
			gotExtra = extra
			return []stremio.Meta{{ID: "cineby:1", Type: "movie", Name: "Alien"}}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/movie/cineby-movies/skip=45&genre=Action.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 45, gotExtra.Skip)
	assert.Equal(t, "Action", gotExtra.Genre)

	var got stremio.CatalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Metas, 1)
	assert.Equal(t, "cineby:1", got.Metas[0].ID)
}

func TestCatalogHandlerExtraQueryString(t *testing.T) {
	var gotExtra CatalogExtra
	svc := &fakeAddonService{
		catalog: func(_ context.Context, _, _ string, extra CatalogExtra) ([]stremio.Meta, error) {
			gotExtra = extra
			return nil, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/series/cineby-search.json?search=severance&skip=20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "severance", gotExtra.Search)
	assert.Equal(t, 20, gotExtra.Skip)
	assert.JSONEq(t, `{"metas":[]}`, rec.Body.String())
}

func TestCatalogHandlerInvalidSkip(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/movie/cineby-movies/skip=abc.json", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerUpstreamFailureDegradesToEmpty(t *testing.T) {
	svc := &fakeAddonService{
		catalog: func(context.Context, string, string, CatalogExtra) ([]stremio.Meta, error) {
			return nil, errors.New("upstream unreachable")
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/movie/cineby-trending.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"metas":[]}`, rec.Body.String())
}

func TestMetaHandlerAbsentUpstreamYieldsEmptyMeta(t *testing.T) {
	svc := &fakeAddonService{
		meta: func(_ context.Context, contentType string, upstreamID int) (*stremio.Meta, error) {
			assert.Equal(t, "series", contentType)
			assert.Equal(t, 42, upstreamID)
			return nil, errors.New("upstream responded with status 404")
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta/series/cineby:42.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"meta":{}}`, rec.Body.String())
}

func TestMetaHandlerMalformedID(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta/movie/tt42.json", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamHandlerSeriesID(t *testing.T) {
	svc := &fakeAddonService{
		streams: func(_ context.Context, contentType string, upstreamID, season, episode int) ([]stremio.Stream, error) {
			assert.Equal(t, "series", contentType)
			assert.Equal(t, 42, upstreamID)
			assert.Equal(t, 2, season)
			assert.Equal(t, 5, episode)
			return []stremio.Stream{{Name: "Cineby", Title: "1080p", URL: "https://cdn.example/ep.m3u8"}}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/series/cineby:42:2:5.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got stremio.StreamsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, "1080p", got.Streams[0].Title)
}

func TestStreamHandlerUpstreamFailureDegradesToEmpty(t *testing.T) {
	svc := &fakeAddonService{
		streams: func(context.Context, string, int, int, int) ([]stremio.Stream, error) {
			return nil, errors.New("upstream unreachable")
		},
	}
	r := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/movie/cineby:550.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streams":[]}`, rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	r := newTestRouter(t, &fakeAddonService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.NotEmpty(t, got["timestamp"])
}
