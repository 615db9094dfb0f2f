package models

import "time"

// Movie is a catalog item stored locally, keyed by its upstream TMDB id.
type Movie struct {
	ID               int       `json:"id"`
	TMDBId           int       `json:"tmdb_id"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview"`
	ReleaseDate      string    `json:"release_date"`
	PosterPath       string    `json:"poster_path"`
	BackdropPath     string    `json:"backdrop_path"`
	Popularity       float64   `json:"popularity"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	GenreIDs         []int64   `json:"genre_ids"`
	Adult            bool      `json:"adult"`
	OriginalLanguage string    `json:"original_language"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MovieSummary is a stored movie annotated with image URLs, as returned to clients.
type MovieSummary struct {
	TMDBId      int     `json:"tmdb_id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	GenreIDs    []int64 `json:"genre_ids"`
	PosterURL   *string `json:"poster_url,omitempty"`
	BackdropURL *string `json:"backdrop_url,omitempty"`
}

// Summary converts a stored movie into its client-facing shape.
func (m *Movie) Summary() MovieSummary {
	genres := m.GenreIDs
	if genres == nil {
		genres = []int64{}
	}
	return MovieSummary{
		TMDBId:      m.TMDBId,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		GenreIDs:    genres,
		PosterURL:   PosterURL(m.PosterPath),
		BackdropURL: BackdropURL(m.BackdropPath),
	}
}

const (
	TMDBImageBaseW500  = "https://image.tmdb.org/t/p/w500"
	TMDBImageBaseW1280 = "https://image.tmdb.org/t/p/w1280"
)

// PosterURL returns the full poster URL for path, or nil when there is no image.
func PosterURL(path string) *string {
	return imageURL(TMDBImageBaseW500, path)
}

// BackdropURL returns the full backdrop URL for path, or nil when there is no image.
func BackdropURL(path string) *string {
	return imageURL(TMDBImageBaseW1280, path)
}

func imageURL(base, path string) *string {
	if path == "" {
		return nil
	}
	u := base + path
	return &u
}

// SyncReport summarizes a bulk catalog synchronization run.
type SyncReport struct {
	Pages   int `json:"pages"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}
