package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/centrifugal/centrifuge"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"stremio-cineby/internal/cache"
	"stremio-cineby/internal/common"
	"stremio-cineby/internal/loki"
	"stremio-cineby/pkg/cineby"
	"stremio-cineby/pkg/stremio"
)

// catalogPageSize is the number of items per catalog page; the skip
// extra paginates in multiples of it.
const catalogPageSize = 20

// CatalogExtra holds the supported extra filters of a catalog request.
type CatalogExtra struct {
	// Search is the query of a search catalog request.
	Search string
	// Genre filters listing catalogs by a display genre label.
	Genre string
	// Skip is the pagination offset in items.
	Skip int
}

// Stats represents statistical data including catalog and stream request counts in the last 24 hours and instant title information.
type Stats struct {
	// CatalogsCount24 represents the number of catalog requests served in the last 24 hours.
	CatalogsCount24 int `json:"catalogsCount24"`
	// StreamsCount24 represents the number of stream requests served in the last 24 hours.
	StreamsCount24 int `json:"streamsCount24"`
	// TitleInstant holds the title information for immediate reporting or broadcasting in statistical data.
	TitleInstant string `json:"titleInstant"`
}

// AddonService defines the addon resource operations over the upstream catalog.
type AddonService interface {
	// Handler handles incoming HTTP requests via a websocket handler
	http.Handler
	// GetCatalog retrieves one page of projected metas for a catalog.
	GetCatalog(ctx context.Context, contentType, catalogID string, extra CatalogExtra) ([]stremio.Meta, error)
	// GetMeta retrieves the full projected meta of one content item.
	GetMeta(ctx context.Context, contentType string, upstreamID int) (*stremio.Meta, error)
	// GetStreams retrieves the projected stream sources of one content item or episode.
	GetStreams(ctx context.Context, contentType string, upstreamID, season, episode int) ([]stremio.Stream, error)
	// BroadcastStats updates and publishes statistical data to a websocket channel.
	// Accepts a function to modify stats and returns an error if updating or publishing fails.
	BroadcastStats(statsUpdater func(stats *Stats) error) error
	// StartPollingStats begins the periodic fetching and broadcasting of statistical data at the specified interval.
	StartPollingStats(interval time.Duration)
}

type addonService struct {
	statsWebsocketChannel string
	cineby                cineby.Cineby
	loki                  loki.Loki

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	statsMutex       *sync.Mutex
	stats            Stats
}

// NewAddonService creates a new instance of AddonService with the provided Cineby and Loki clients.
func NewAddonService(statsWebsocketChannel string, cineby cineby.Cineby, loki loki.Loki) AddonService {
	svc := &addonService{
		statsWebsocketChannel: statsWebsocketChannel,
		cineby:                cineby,
		loki:                  loki,

		statsMutex: &sync.Mutex{},
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		common.Log.Error("Failed to centrifuge.New", "err", err)
		os.Exit(1)
	}
	svc.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != statsWebsocketChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{},
			}, nil)

			go func() {
				err := svc.BroadcastStats(func(data *Stats) error { return nil })
				if err != nil {
					common.Log.Warn("Failed to internal.AddonService.BroadcastStats", "err", err)
				}
			}()
		})

	})

	if err := node.Run(); err != nil {
		common.Log.Error("Failed to centrifuge.Node.Run", "err", err)
		os.Exit(1)
	}

	websocketHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})
	svc.websocketHandler = websocketHandler

	return svc
}

// GetCatalog retrieves one page of projected metas for a catalog.
// Results are memoized per page to keep upstream traffic down.
func (s *addonService) GetCatalog(ctx context.Context, contentType, catalogID string, extra CatalogExtra) ([]stremio.Meta, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.AddonService.GetCatalog")
	defer span.End()

	page := extra.Skip/catalogPageSize + 1
	span.SetAttributes(attribute.String("catalog.id", catalogID))
	span.SetAttributes(attribute.String("catalog.type", contentType))
	span.SetAttributes(attribute.Int("catalog.page", page))

	cacheResult := "hit"
	cacheKey := fmt.Sprintf("cineby.catalog : %s/%s/q=%s/g=%s/p=%d", contentType, catalogID, extra.Search, extra.Genre, page)
	cacheTTL := time.Hour
	metas, err := cache.Memoize[[]stremio.Meta](cacheKey, cacheTTL, func() (*[]stremio.Meta, error) {

		cacheResult = "miss"
		titles, err := s.fetchCatalog(ctx, catalogID, extra, page)
		if err != nil {
			return nil, err
		}

		projected := make([]stremio.Meta, 0, len(titles))
		for i := range titles {
			meta := projectMeta(&titles[i])
			// Mixed listings (trending, search) serve both content
			// types; each catalog only keeps its own.
			if meta == nil || meta.Type != contentType {
				continue
			}
			projected = append(projected, *meta)
		}

		return &projected, nil
	})
	span.SetAttributes(attribute.String("cache.cineby.catalog.result", cacheResult))
	if common.CacheGetsTotalIncr != nil {
		common.CacheGetsTotalIncr(ctx, "cineby.catalog", cacheResult)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("catalog.metas-count", len(*metas)))

	return *metas, nil
}

func (s *addonService) fetchCatalog(ctx context.Context, catalogID string, extra CatalogExtra, page int) ([]cineby.Title, error) {
	switch {
	case catalogID == "cineby-search":
		if extra.Search == "" {
			return nil, nil
		}
		titles, err := s.cineby.Search(ctx, extra.Search, page)
		if err != nil {
			return nil, fmt.Errorf("failed to cineby.Cineby.Search: %w", err)
		}
		return titles, nil
	case catalogID == "cineby-trending":
		titles, err := s.cineby.GetTrending(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to cineby.Cineby.GetTrending: %w", err)
		}
		return titles, nil
	case catalogID == "cineby-movies":
		titles, err := s.cineby.GetMovies(ctx, page, genreIDForName(extra.Genre))
		if err != nil {
			return nil, fmt.Errorf("failed to cineby.Cineby.GetMovies: %w", err)
		}
		return titles, nil
	case catalogID == "cineby-series":
		titles, err := s.cineby.GetSeries(ctx, page, genreIDForName(extra.Genre))
		if err != nil {
			return nil, fmt.Errorf("failed to cineby.Cineby.GetSeries: %w", err)
		}
		return titles, nil
	default:
		return nil, fmt.Errorf("unknown catalog id: %s", catalogID)
	}
}

// GetMeta retrieves the full projected meta of one content item,
// including episode videos for series.
func (s *addonService) GetMeta(ctx context.Context, contentType string, upstreamID int) (*stremio.Meta, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.AddonService.GetMeta")
	defer span.End()

	kind := kindForContentType(contentType)
	span.SetAttributes(attribute.String("meta.kind", kind))
	span.SetAttributes(attribute.Int("meta.upstream-id", upstreamID))

	cacheResult := "hit"
	cacheKey := fmt.Sprintf("cineby.meta : %s:%d", kind, upstreamID)
	cacheTTL := 12 * time.Hour
	meta, err := cache.Memoize[stremio.Meta](cacheKey, cacheTTL, func() (*stremio.Meta, error) {

		cacheResult = "miss"
		title, err := s.cineby.GetDetails(ctx, kind, upstreamID)
		if err != nil {
			return nil, fmt.Errorf("failed to cineby.Cineby.GetDetails: %w", err)
		}

		meta := projectMeta(title)
		if meta == nil {
			return nil, fmt.Errorf("upstream detail payload carries no id")
		}
		if contentType == "series" {
			meta.Videos = projectEpisodeVideos(meta.ID, title.Seasons)
		}

		return meta, nil
	})
	span.SetAttributes(attribute.String("cache.cineby.meta.result", cacheResult))
	if common.CacheGetsTotalIncr != nil {
		common.CacheGetsTotalIncr(ctx, "cineby.meta", cacheResult)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("meta.name", meta.Name))

	go func() {
		err := s.BroadcastStats(func(data *Stats) error {
			data.TitleInstant = meta.Name
			return nil
		})
		if err != nil {
			common.Log.WarnContext(ctx, "Failed to internal.AddonService.BroadcastStats", "err", err)
		}
	}()

	return meta, nil
}

// GetStreams retrieves the projected stream sources of one content
// item or episode. Sources are not cached: their urls expire.
func (s *addonService) GetStreams(ctx context.Context, contentType string, upstreamID, season, episode int) ([]stremio.Stream, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.AddonService.GetStreams")
	defer span.End()

	kind := kindForContentType(contentType)
	sources, err := s.cineby.GetSources(ctx, kind, upstreamID, season, episode)
	if err != nil {
		return nil, fmt.Errorf("failed to cineby.Cineby.GetSources: %w", err)
	}

	streams := projectStreams(sources)
	span.SetAttributes(attribute.Int("streams.count", len(streams)))
	if common.StreamsServedTotalIncr != nil {
		common.StreamsServedTotalIncr(ctx, contentType)
	}
	common.Log.InfoContext(ctx, "Found streams", "count", len(streams), "kind", kind, "id", upstreamID)

	return streams, nil
}

// BroadcastStats updates and publishes statistical data to a websocket channel.
// Accepts a function to modify stats and returns an error if updating or publishing fails.
func (s *addonService) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	stats, err := func() (Stats, error) {
		s.statsMutex.Lock()
		defer s.statsMutex.Unlock()
		err := statsUpdater(&s.stats)
		if err != nil {
			return Stats{}, err
		}
		return s.stats, nil
	}()
	if err != nil {
		return fmt.Errorf("failed to statsUpdater: %w", err)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = s.node.Publish(s.statsWebsocketChannel, b)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// StartPollingStats begins the periodic fetching and broadcasting of statistical data at the specified interval.
func (s *addonService) StartPollingStats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	for ; true; <-ticker.C {
		catalogs, err := s.loki.GetCatalogs24()
		if err != nil {
			common.Log.Error("failed to loki.Loki.GetCatalogs24", "err", err)
		}
		streams, err := s.loki.GetStreams24()
		if err != nil {
			common.Log.Error("failed to loki.Loki.GetStreams24", "err", err)
		}
		err = s.BroadcastStats(func(stats *Stats) error {
			if catalogs != 0 {
				stats.CatalogsCount24 = catalogs
			}
			if streams != 0 {
				stats.StreamsCount24 = streams
			}
			return nil
		})
		if err != nil {
			common.Log.Warn("failed to internal.AddonService.BroadcastStats", "err", err)
		}
	}
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (s *addonService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	s.websocketHandler.ServeHTTP(w, r)
}
