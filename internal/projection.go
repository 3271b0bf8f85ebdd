package internal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stremio-cineby/internal/common"
	"stremio-cineby/pkg/cineby"
	"stremio-cineby/pkg/stremio"
)

// genreNames maps upstream genre ids to display labels. The upstream
// mirrors the TMDB id space, movie and tv ids combined. Unknown ids
// are dropped, not placeholdered.
var genreNames = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
	10759: "Action & Adventure",
	10762: "Kids",
	10763: "News",
	10764: "Reality",
	10765: "Sci-Fi & Fantasy",
	10766: "Soap",
	10767: "Talk",
	10768: "War & Politics",
}

// GenreOptions lists the selectable genre labels for the manifest
// catalog definitions, sorted for a stable manifest.
func GenreOptions() []string {
	options := make([]string, 0, len(genreNames))
	for _, name := range genreNames {
		options = append(options, name)
	}
	sort.Strings(options)
	return options
}

func genreIDForName(name string) int {
	for id, n := range genreNames {
		if n == name {
			return id
		}
	}
	return 0
}

// projectGenres resolves upstream genre ids to labels, dropping
// unmapped ids and preserving input order.
func projectGenres(ids []int) []string {
	genres := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genreNames[id]; ok {
			genres = append(genres, name)
		}
	}
	return genres
}

func contentTypeForKind(kind string) string {
	if kind == cineby.KindTV {
		return "series"
	}
	return "movie"
}

func kindForContentType(contentType string) string {
	if contentType == "series" {
		return cineby.KindTV
	}
	return cineby.KindMovie
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// projectMeta maps a normalized upstream title into the Stremio meta
// shape. Items without an id have nothing addressable to offer and
// project to nil.
func projectMeta(t *cineby.Title) *stremio.Meta {
	if t == nil || t.ID == 0 {
		return nil
	}

	genres := t.Genres
	if len(genres) == 0 {
		genres = projectGenres(t.GenreIDs)
	}

	meta := &stremio.Meta{
		ID:          fmt.Sprintf("%s%d", common.IDPrefix, t.ID),
		Type:        contentTypeForKind(t.Kind),
		Name:        t.Name,
		Poster:      t.Poster,
		Background:  t.Backdrop,
		Description: t.Overview,
		ReleaseInfo: releaseYear(t.ReleaseDate),
		Genres:      genres,
		Language:    t.Language,
	}
	if t.Rating > 0 {
		meta.IMDBRating = strconv.FormatFloat(t.Rating, 'f', 1, 64)
	}

	return meta
}

// projectEpisodeVideos flattens the nested season/episode structure of
// a series detail into Stremio video entries. Episodes missing a
// number or a name are skipped.
func projectEpisodeVideos(metaID string, seasons []cineby.Season) []stremio.Video {
	var videos []stremio.Video
	for _, season := range seasons {
		for _, episode := range season.Episodes {
			if episode.Number == 0 || episode.Name == "" {
				continue
			}
			videos = append(videos, stremio.Video{
				ID:        fmt.Sprintf("%s:%d:%d", metaID, season.Number, episode.Number),
				Title:     fmt.Sprintf("S%02dE%02d - %s", season.Number, episode.Number, episode.Name),
				Season:    season.Number,
				Episode:   episode.Number,
				Released:  episode.Released,
				Overview:  episode.Overview,
				Thumbnail: episode.Still,
			})
		}
	}
	return videos
}

// qualityRank orders stream sources best-first. Unknown labels rank
// below every known quality and render as "Auto".
func qualityRank(quality string) int {
	switch quality {
	case "1080p":
		return 4
	case "720p":
		return 3
	case "480p":
		return 2
	default:
		return 1
	}
}

func webReady(format string) bool {
	switch strings.ToLower(format) {
	case "mp4", "hls", "m3u8":
		return true
	default:
		return false
	}
}

// projectStreams maps upstream sources into Stremio streams, dropping
// url-less entries and stable-sorting by quality rank descending so
// ties keep the upstream order.
func projectStreams(sources []cineby.Source) []stremio.Stream {
	playable := make([]cineby.Source, 0, len(sources))
	for _, source := range sources {
		if source.URL == "" {
			continue
		}
		playable = append(playable, source)
	}

	sort.SliceStable(playable, func(i, j int) bool {
		return qualityRank(playable[i].Quality) > qualityRank(playable[j].Quality)
	})

	streams := make([]stremio.Stream, 0, len(playable))
	for _, source := range playable {
		quality := source.Quality
		if qualityRank(quality) == 1 {
			quality = "Auto"
		}
		stream := stremio.Stream{
			Name:  "Cineby",
			Title: quality,
			URL:   source.URL,
		}
		if !webReady(source.Format) {
			stream.BehaviorHints = &stremio.StreamBehaviorHints{NotWebReady: true}
		}
		streams = append(streams, stream)
	}

	return streams
}
