package cineby

// Content kinds used by the upstream site.
const (
	KindMovie = "movie"
	KindTV    = "tv"
)

// Title is the normalized representation of one upstream content item.
// The upstream payload shape differs per endpoint, so each endpoint has
// its own raw struct below that adapts into a Title before leaving this
// package.
type Title struct {
	ID          int
	Kind        string
	Name        string
	Poster      string
	Backdrop    string
	Overview    string
	ReleaseDate string
	Rating      float64
	Language    string
	GenreIDs    []int
	// Genres carries resolved genre names; only detail lookups provide them.
	Genres []string
	// Seasons is only populated by series detail lookups.
	Seasons []Season
}

// Season groups the episodes of one season of a series.
type Season struct {
	Number   int       `json:"season_number"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one episode of a season.
type Episode struct {
	Number   int    `json:"episode_number"`
	Name     string `json:"name"`
	Overview string `json:"overview"`
	Released string `json:"air_date"`
	Still    string `json:"still_path"`
}

// Source is one playable stream source of a content item.
type Source struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Format  string `json:"format"`
}

const (
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	backdropBaseURL = "https://image.tmdb.org/t/p/original"
)

func imageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if path[0] != '/' {
		return path
	}
	return base + path
}

// listItem is the row shape of the trending, movie and tv listing
// endpoints. Movie rows carry title/release_date, tv rows name/first_air_date.
type listItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	MediaType        string  `json:"media_type"`
	GenreIDs         []int   `json:"genre_ids"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
}

func (it listItem) normalize(fallbackKind string) Title {
	kind := it.MediaType
	if kind == "" {
		kind = fallbackKind
	}
	name := it.Title
	if name == "" {
		name = it.Name
	}
	release := it.ReleaseDate
	if release == "" {
		release = it.FirstAirDate
	}
	return Title{
		ID:          it.ID,
		Kind:        kind,
		Name:        name,
		Poster:      imageURL(posterBaseURL, it.PosterPath),
		Backdrop:    imageURL(backdropBaseURL, it.BackdropPath),
		Overview:    it.Overview,
		ReleaseDate: release,
		Rating:      it.VoteAverage,
		Language:    it.OriginalLanguage,
		GenreIDs:    it.GenreIDs,
	}
}

// searchItem is the row shape of the search endpoint, which uses a
// flatter field set than the listings.
type searchItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Backdrop    string  `json:"backdrop"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	MediaType   string  `json:"media_type"`
	GenreIDs    []int   `json:"genre_ids"`
	Rating      float64 `json:"rating"`
	Language    string  `json:"language"`
}

func (it searchItem) normalize() Title {
	name := it.Title
	if name == "" {
		name = it.Name
	}
	return Title{
		ID:          it.ID,
		Kind:        it.MediaType,
		Name:        name,
		Poster:      imageURL(posterBaseURL, it.Image),
		Backdrop:    imageURL(backdropBaseURL, it.Backdrop),
		Overview:    it.Description,
		ReleaseDate: it.Date,
		Rating:      it.Rating,
		Language:    it.Language,
		GenreIDs:    it.GenreIDs,
	}
}

// detailItem is the shape of the movie and tv detail endpoints. Genres
// arrive resolved as objects rather than as bare ids.
type detailItem struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
	Overview     string `json:"overview"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	Genres       []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	VoteAverage      float64  `json:"vote_average"`
	OriginalLanguage string   `json:"original_language"`
	Seasons          []Season `json:"seasons"`
}

func (it detailItem) normalize(kind string) Title {
	name := it.Title
	if name == "" {
		name = it.Name
	}
	release := it.ReleaseDate
	if release == "" {
		release = it.FirstAirDate
	}
	genres := make([]string, 0, len(it.Genres))
	genreIDs := make([]int, 0, len(it.Genres))
	for _, g := range it.Genres {
		genres = append(genres, g.Name)
		genreIDs = append(genreIDs, g.ID)
	}
	return Title{
		ID:          it.ID,
		Kind:        kind,
		Name:        name,
		Poster:      imageURL(posterBaseURL, it.PosterPath),
		Backdrop:    imageURL(backdropBaseURL, it.BackdropPath),
		Overview:    it.Overview,
		ReleaseDate: release,
		Rating:      it.VoteAverage,
		Language:    it.OriginalLanguage,
		GenreIDs:    genreIDs,
		Genres:      genres,
		Seasons:     it.Seasons,
	}
}
