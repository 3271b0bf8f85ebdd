package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stremio-cineby/pkg/cineby"
)

func TestProjectGenresDropsUnmappedPreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"Action", "Comedy"}, projectGenres([]int{28, 99999, 35}))
	assert.Equal(t, []string{"Comedy", "Action"}, projectGenres([]int{35, 28}))
	assert.Empty(t, projectGenres(nil))
}

func TestProjectMeta(t *testing.T) {
	meta := projectMeta(&cineby.Title{
		ID:          550,
		Kind:        cineby.KindMovie,
		Name:        "Fight Club",
		Poster:      "https://image.tmdb.org/t/p/w500/fc.jpg",
		Overview:    "An insomniac office worker.",
		ReleaseDate: "1999-10-15",
		Rating:      8.4,
		Language:    "en",
		GenreIDs:    []int{18, 53},
	})

	require.NotNil(t, meta)
	assert.Equal(t, "cineby:550", meta.ID)
	assert.Equal(t, "movie", meta.Type)
	assert.Equal(t, "1999", meta.ReleaseInfo)
	assert.Equal(t, "8.4", meta.IMDBRating)
	assert.Equal(t, []string{"Drama", "Thriller"}, meta.Genres)
}

func TestProjectMetaPrefersResolvedGenres(t *testing.T) {
	meta := projectMeta(&cineby.Title{
		ID:       42,
		Kind:     cineby.KindTV,
		Name:     "Severance",
		GenreIDs: []int{18},
		Genres:   []string{"Drama", "Mystery"},
	})

	require.NotNil(t, meta)
	assert.Equal(t, "series", meta.Type)
	assert.Equal(t, []string{"Drama", "Mystery"}, meta.Genres)
	assert.Empty(t, meta.IMDBRating, "zero rating must not render")
}

func TestProjectMetaAbsentWithoutID(t *testing.T) {
	assert.Nil(t, projectMeta(nil))
	assert.Nil(t, projectMeta(&cineby.Title{Name: "No ID"}))
}

func TestProjectEpisodeVideos(t *testing.T) {
	videos := projectEpisodeVideos("cineby:42", []cineby.Season{
		{
			Number: 2,
			Episodes: []cineby.Episode{
				{Number: 5, Name: "Homecoming"},
				{Number: 0, Name: "Special"},
				{Number: 6, Name: ""},
			},
		},
	})

	require.Len(t, videos, 1, "episodes missing a number or a name are skipped")
	assert.Equal(t, "cineby:42:2:5", videos[0].ID)
	assert.Equal(t, "S02E05 - Homecoming", videos[0].Title)
	assert.Equal(t, 2, videos[0].Season)
	assert.Equal(t, 5, videos[0].Episode)
}

func TestProjectStreamsQualitySortStableAndIdempotent(t *testing.T) {
	sources := []cineby.Source{
		{URL: "u1", Quality: "Auto", Format: "hls"},
		{URL: "u2", Quality: "1080p", Format: "mp4"},
		{URL: "u3", Quality: "720p", Format: "mp4"},
	}

	streams := projectStreams(sources)
	require.Len(t, streams, 3)
	assert.Equal(t, []string{"1080p", "720p", "Auto"}, []string{streams[0].Title, streams[1].Title, streams[2].Title})

	// Sorting an already sorted input must yield the same order.
	again := projectStreams([]cineby.Source{
		{URL: "u2", Quality: "1080p", Format: "mp4"},
		{URL: "u3", Quality: "720p", Format: "mp4"},
		{URL: "u1", Quality: "Auto", Format: "hls"},
	})
	require.Len(t, again, 3)
	assert.Equal(t, streams, again)
}

func TestProjectStreamsTiesKeepUpstreamOrder(t *testing.T) {
	streams := projectStreams([]cineby.Source{
		{URL: "first", Quality: "720p", Format: "mp4"},
		{URL: "second", Quality: "720p", Format: "mp4"},
		{URL: "best", Quality: "1080p", Format: "mp4"},
	})

	require.Len(t, streams, 3)
	assert.Equal(t, "best", streams[0].URL)
	assert.Equal(t, "first", streams[1].URL)
	assert.Equal(t, "second", streams[2].URL)
}

func TestProjectStreamsFiltersAndHints(t *testing.T) {
	streams := projectStreams([]cineby.Source{
		{URL: "", Quality: "1080p", Format: "mp4"},
		{URL: "u1", Quality: "480p", Format: "mkv"},
		{URL: "u2", Quality: "", Format: "hls"},
	})

	require.Len(t, streams, 2)
	assert.Equal(t, "480p", streams[0].Title)
	require.NotNil(t, streams[0].BehaviorHints)
	assert.True(t, streams[0].BehaviorHints.NotWebReady)
	assert.Equal(t, "Auto", streams[1].Title)
	assert.Nil(t, streams[1].BehaviorHints)
}
