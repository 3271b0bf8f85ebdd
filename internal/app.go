package internal

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"stremio-cineby/internal/common"
	"stremio-cineby/pkg/stremio"
)

// Version is the addon version advertised in the manifest.
const Version = "0.1.0"

var manifest = stremio.Manifest{
	ID:          "app.cineby.stremio",
	Version:     Version,
	Name:        "Cineby",
	Description: "Cineby catalogs, metadata and streams addon",
	Types:       []string{"movie", "series"},
	IDPrefixes:  []string{common.IDPrefix},
	Resources:   []string{"catalog", "meta", "stream"},
	Catalogs: []stremio.Catalog{
		{ID: "cineby-trending", Type: "movie", Name: "Cineby - Trending", Extra: []stremio.Extra{{Name: "skip"}}},
		{ID: "cineby-trending", Type: "series", Name: "Cineby - Trending", Extra: []stremio.Extra{{Name: "skip"}}},
		{ID: "cineby-movies", Type: "movie", Name: "Cineby - Movies", Extra: []stremio.Extra{{Name: "genre", Options: GenreOptions()}, {Name: "skip"}}},
		{ID: "cineby-series", Type: "series", Name: "Cineby - Series", Extra: []stremio.Extra{{Name: "genre", Options: GenreOptions()}, {Name: "skip"}}},
		{ID: "cineby-search", Type: "movie", Name: "Cineby - Search", Extra: []stremio.Extra{{Name: "search", IsRequired: true}, {Name: "skip"}}},
		{ID: "cineby-search", Type: "series", Name: "Cineby - Search", Extra: []stremio.Extra{{Name: "search", IsRequired: true}, {Name: "skip"}}},
	},
}

// App represents the main application structure that holds the addon service and addon host information.
type App struct {
	AddonService AddonService
	AddonHost    string
}

// NewApp creates a new instance of the App struct.
func NewApp(addonService AddonService, addonHost string) (*App, error) {
	return &App{
		AddonService: addonService,
		AddonHost:    addonHost,
	}, nil
}

/*
ManifestHandler serves the manifest for the addon.

This method writes the manifest as a JSON response to the HTTP writer.
*/
func (a *App) ManifestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "ManifestHandler")

	w.Header().Set("Content-Type", "application/json")

	b, _ := json.Marshal(manifest)
	_, err := w.Write(b)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
CatalogHandler handles catalog resource requests.

Invalid inbound parameters yield a 400; upstream failure after valid
input degrades to an empty metas collection with status 200, which is
what the client protocol expects for missing content.
*/
func (a *App) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "CatalogHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.type", paramsType))

	paramsID := trimJSONSuffix(chi.URLParam(r, "id"))
	if err := common.ValidateCatalogID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateCatalogID", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.id", paramsID))

	extra, err := parseCatalogExtra(r)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to parse catalog extra", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	metas, err := a.AddonService.GetCatalog(ctx, paramsType, paramsID, extra)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to AddonService.GetCatalog", "err", err)
		span.RecordError(err)
		metas = nil
	}
	if metas == nil {
		metas = []stremio.Meta{}
	}

	w.Header().Set("CDN-Cache-Control", "public, max-age=3600")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(stremio.CatalogResponse{Metas: metas}); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
MetaHandler handles meta resource requests.

The namespaced id is validated and stripped before querying upstream.
An item the upstream no longer knows degrades to an empty meta object
with status 200 rather than an error status.
*/
func (a *App) MetaHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "MetaHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.type", paramsType))

	paramsID, err := url.PathUnescape(trimJSONSuffix(chi.URLParam(r, "id")))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to url.PathUnescape", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.id", paramsID))

	upstreamID, err := common.ParseMetaID(paramsID)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ParseMetaID", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	response := stremio.MetaResponse{}
	meta, err := a.AddonService.GetMeta(ctx, paramsType, upstreamID)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to AddonService.GetMeta", "err", err)
		span.RecordError(err)
	} else if meta != nil {
		response.Meta = *meta
	}

	w.Header().Set("CDN-Cache-Control", "public, max-age=3600")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
StreamHandler handles stream resource requests.

For series the id encodes season and episode as colon-separated suffix
fields. Upstream failure degrades to an empty streams collection.
*/
func (a *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "StreamHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.type", paramsType))

	paramsID, err := url.PathUnescape(trimJSONSuffix(chi.URLParam(r, "id")))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to url.PathUnescape", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.String("params.id", paramsID))

	upstreamID, season, episode, err := common.ParseStreamID(paramsID)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ParseStreamID", "err", err)
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	streams, err := a.AddonService.GetStreams(ctx, paramsType, upstreamID, season, episode)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to AddonService.GetStreams", "err", err)
		span.RecordError(err)
		streams = nil
	}
	if streams == nil {
		streams = []stremio.Stream{}
	}

	// Stream urls expire upstream; keep client caching short.
	w.Header().Set("CDN-Cache-Control", "public, max-age=120")
	w.Header().Set("Cache-Control", "public, max-age=120")
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(stremio.StreamsResponse{Streams: streams}); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

// HealthHandler serves a liveness payload.
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.AddonService.ServeHTTP(w, r)
}

// trimJSONSuffix drops the ".json" suffix Stremio clients append to
// the last path segment of a resource request.
func trimJSONSuffix(segment string) string {
	return strings.TrimSuffix(segment, ".json")
}

// parseCatalogExtra reads the supported extra filters from the extra
// path segment (url-encoded properties) or from the query string.
func parseCatalogExtra(r *http.Request) (CatalogExtra, error) {
	values := r.URL.Query()

	if paramsExtra := chi.URLParam(r, "extra"); paramsExtra != "" {
		unescaped, err := url.PathUnescape(trimJSONSuffix(paramsExtra))
		if err != nil {
			return CatalogExtra{}, err
		}
		extraValues, err := url.ParseQuery(unescaped)
		if err != nil {
			return CatalogExtra{}, err
		}
		for key, vals := range extraValues {
			for _, v := range vals {
				values.Add(key, v)
			}
		}
	}

	extra := CatalogExtra{
		Search: values.Get("search"),
		Genre:  values.Get("genre"),
	}

	if rawSkip := values.Get("skip"); rawSkip != "" {
		skip, err := strconv.Atoi(rawSkip)
		if err != nil || skip < 0 {
			return CatalogExtra{}, errInvalidSkip
		}
		extra.Skip = skip
	}

	return extra, nil
}

var errInvalidSkip = &badParamError{"invalid skip value"}

type badParamError struct{ msg string }

func (e *badParamError) Error() string { return e.msg }

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
