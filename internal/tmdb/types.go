package tmdb

import (
	"github.com/goccy/go-json"

	"movie-discovery/internal/models"
)

// MoviePage is a paginated list response (trending, popular, search, recommendations).
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Movie is a movie as TMDB returns it in list responses. Image paths are
// nullable upstream. PosterURL and BackdropURL are never set by TMDB; they
// are filled in by Annotate.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int64 `json:"genre_ids,omitempty"`
	Adult            bool    `json:"adult"`
	OriginalLanguage string  `json:"original_language"`
	PosterURL        *string `json:"poster_url,omitempty"`
	BackdropURL      *string `json:"backdrop_url,omitempty"`
}

// Genre is a TMDB genre tag.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the movie/{id} response with credits, videos and reviews appended.
type MovieDetail struct {
	Movie
	Genres   []Genre         `json:"genres"`
	Runtime  *int            `json:"runtime"`
	Tagline  string          `json:"tagline,omitempty"`
	Status   string          `json:"status,omitempty"`
	Homepage string          `json:"homepage,omitempty"`
	IMDbID   *string         `json:"imdb_id"`
	Budget   int64           `json:"budget,omitempty"`
	Revenue  int64           `json:"revenue,omitempty"`
	Credits  json.RawMessage `json:"credits,omitempty"`
	Videos   json.RawMessage `json:"videos,omitempty"`
	Reviews  json.RawMessage `json:"reviews,omitempty"`
}

// Annotate sets the derived image URLs from the image paths.
func (m *Movie) Annotate() {
	m.PosterURL = models.PosterURL(deref(m.PosterPath))
	m.BackdropURL = models.BackdropURL(deref(m.BackdropPath))
}

// Annotate annotates every result on the page.
func (p *MoviePage) Annotate() {
	for i := range p.Results {
		p.Results[i].Annotate()
	}
}

// GenreSet returns the genre ids of the movie. Detail responses carry
// genre objects instead of ids.
func (d *MovieDetail) GenreSet() []int64 {
	if len(d.GenreIDs) > 0 {
		return d.GenreIDs
	}
	ids := make([]int64, 0, len(d.Genres))
	for _, g := range d.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}

// ToModel converts the upstream shape into a catalog item. Missing values
// become zero values so an upsert fully replaces the stored row.
func (m *Movie) ToModel() *models.Movie {
	genres := m.GenreIDs
	if genres == nil {
		genres = []int64{}
	}
	return &models.Movie{
		TMDBId:           m.ID,
		Title:            m.Title,
		Overview:         m.Overview,
		ReleaseDate:      m.ReleaseDate,
		PosterPath:       deref(m.PosterPath),
		BackdropPath:     deref(m.BackdropPath),
		Popularity:       m.Popularity,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		GenreIDs:         genres,
		Adult:            m.Adult,
		OriginalLanguage: m.OriginalLanguage,
	}
}

// ToModel converts a detail response, taking genres from the genre objects.
func (d *MovieDetail) ToModel() *models.Movie {
	m := d.Movie.ToModel()
	m.GenreIDs = d.GenreSet()
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
