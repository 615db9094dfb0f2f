package models

// APIStats holds catalog and interaction totals.
type APIStats struct {
	TotalUsers     int     `json:"total_users"`
	TotalMovies    int     `json:"total_movies"`
	TotalFavorites int     `json:"total_favorites"`
	TotalRatings   int     `json:"total_ratings"`
	AverageRating  float64 `json:"average_rating"`
}

// FavoriteCount is a movie ranked by how many users favorited it.
type FavoriteCount struct {
	TMDBId        int    `json:"tmdb_id"`
	Title         string `json:"title"`
	FavoriteCount int    `json:"favorite_count"`
}

// RatingCount is a movie ranked by how many users rated it.
type RatingCount struct {
	TMDBId        int     `json:"tmdb_id"`
	Title         string  `json:"title"`
	RatingCount   int     `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`
}

// PopularityStats ranks movies by user interactions.
type PopularityStats struct {
	MostFavorited []FavoriteCount `json:"most_favorited"`
	MostRated     []RatingCount   `json:"most_rated"`
}

// EngagementStats counts users with at least one favorite or rating.
type EngagementStats struct {
	TotalUsers         int `json:"total_users"`
	UsersWithFavorites int `json:"users_with_favorites"`
	UsersWithRatings   int `json:"users_with_ratings"`
	ActiveUsers        int `json:"active_users"`

	// Percentage of all users that are active.
	EngagementRate float64 `json:"engagement_rate"`
}

// AnalyticsReport is the admin analytics overview.
type AnalyticsReport struct {
	Stats       APIStats        `json:"stats"`
	Popular     PopularityStats `json:"popular"`
	Engagement  EngagementStats `json:"engagement"`
	GeneratedAt string          `json:"generated_at"`
}
