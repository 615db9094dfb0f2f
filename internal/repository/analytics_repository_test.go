package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-discovery/internal/models"
)

func TestAnalytics_EmptyDatabase(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := NewAnalyticsRepository(db)

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.APIStats{}, *totals)

	fav, err := repo.MostFavorited(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, fav)

	eng, err := repo.Engagement(ctx)
	require.NoError(t, err)
	assert.Zero(t, eng.ActiveUsers)
}

func TestAnalytics_Aggregates(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	movies := NewMovieRepository(db)
	interactions := NewInteractionRepository(db)
	repo := NewAnalyticsRepository(db)

	alice := seedUser(t, "alice")
	bob := seedUser(t, "bob")
	seedUser(t, "carol")
	fightClub := seedMovie(t, movies, models.Movie{TMDBId: 550, Title: "Fight Club"})
	matrix := seedMovie(t, movies, models.Movie{TMDBId: 603, Title: "The Matrix"})

	for _, uid := range []int{alice.ID, bob.ID} {
		_, err := interactions.AddInteraction(ctx, models.KindFavorite, uid, matrix.ID)
		require.NoError(t, err)
	}
	_, err := interactions.AddInteraction(ctx, models.KindFavorite, alice.ID, fightClub.ID)
	require.NoError(t, err)
	_, err = interactions.CreateRating(ctx, alice.ID, fightClub.ID, 9)
	require.NoError(t, err)
	_, err = interactions.CreateRating(ctx, bob.ID, fightClub.ID, 6)
	require.NoError(t, err)
	_, err = interactions.CreateRating(ctx, bob.ID, matrix.ID, 8)
	require.NoError(t, err)

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.TotalUsers)
	assert.Equal(t, 2, totals.TotalMovies)
	assert.Equal(t, 3, totals.TotalFavorites)
	assert.Equal(t, 3, totals.TotalRatings)
	assert.InDelta(t, 23.0/3, totals.AverageRating, 0.001)

	fav, err := repo.MostFavorited(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.FavoriteCount{
		{TMDBId: 603, Title: "The Matrix", FavoriteCount: 2},
		{TMDBId: 550, Title: "Fight Club", FavoriteCount: 1},
	}, fav)

	rated, err := repo.MostRated(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rated, 1)
	assert.Equal(t, 550, rated[0].TMDBId)
	assert.Equal(t, 2, rated[0].RatingCount)
	assert.InDelta(t, 7.5, rated[0].AverageRating, 0.001)

	eng, err := repo.Engagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStats{
		TotalUsers:         3,
		UsersWithFavorites: 2,
		UsersWithRatings:   2,
		ActiveUsers:        2,
	}, *eng)

	active, err := interactions.ActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{alice.ID, bob.ID}, active)
}
