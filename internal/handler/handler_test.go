package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

type stubMovies struct {
	err        error
	lastWindow string
	lastPage   int
	lastQuery  string
	lastPages  int
	lastClear  bool
}

func (s *stubMovies) page() *tmdb.MoviePage {
	return &tmdb.MoviePage{Page: s.lastPage, Results: []tmdb.Movie{{ID: 550, Title: "Fight Club"}}}
}

func (s *stubMovies) Trending(_ context.Context, window string, page int) (*tmdb.MoviePage, error) {
	s.lastWindow, s.lastPage = window, page
	if s.err != nil {
		return nil, s.err
	}
	return s.page(), nil
}

func (s *stubMovies) Popular(_ context.Context, page int) (*tmdb.MoviePage, error) {
	s.lastPage = page
	if s.err != nil {
		return nil, s.err
	}
	return s.page(), nil
}

func (s *stubMovies) Details(_ context.Context, id int) (*tmdb.MovieDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tmdb.MovieDetail{Movie: tmdb.Movie{ID: id, Title: "Fight Club"}}, nil
}

func (s *stubMovies) Search(_ context.Context, query string, page int) (*tmdb.MoviePage, error) {
	s.lastQuery, s.lastPage = query, page
	if s.err != nil {
		return nil, s.err
	}
	return s.page(), nil
}

func (s *stubMovies) Related(_ context.Context, _, page int) (*tmdb.MoviePage, error) {
	s.lastPage = page
	if s.err != nil {
		return nil, s.err
	}
	return s.page(), nil
}

func (s *stubMovies) SyncPopular(_ context.Context, pages int, clearCache bool) (*models.SyncReport, error) {
	s.lastPages, s.lastClear = pages, clearCache
	if s.err != nil {
		return nil, s.err
	}
	return &models.SyncReport{Pages: pages, Created: 3}, nil
}

type stubInteractions struct {
	err     error
	lastReq any
}

func (s *stubInteractions) CreateUser(_ context.Context, req models.CreateUserRequest) (*models.User, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{ID: 1, Username: req.Username, Email: req.Email}, nil
}

func (s *stubInteractions) GetUser(_ context.Context, id int) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{ID: id, Username: "tyler"}, nil
}

func (s *stubInteractions) Add(_ context.Context, kind models.InteractionKind, userID int, req models.MovieRefRequest) (*models.Interaction, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Interaction{ID: 1, UserID: userID, Kind: kind, Movie: models.MovieSummary{TMDBId: req.MovieID}}, nil
}

func (s *stubInteractions) List(_ context.Context, kind models.InteractionKind, userID int) ([]models.Interaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Interaction{{ID: 1, UserID: userID, Kind: kind}}, nil
}

func (s *stubInteractions) Remove(context.Context, models.InteractionKind, int, int) error {
	return s.err
}

func (s *stubInteractions) AddRating(_ context.Context, userID int, req models.RatingRequest) (*models.Rating, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Rating{ID: 1, UserID: userID, Rating: int(req.Rating)}, nil
}

func (s *stubInteractions) UpdateRating(_ context.Context, userID, _ int, req models.UpdateRatingRequest) (*models.Rating, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Rating{ID: 1, UserID: userID, Rating: int(req.Rating)}, nil
}

func (s *stubInteractions) GetRating(_ context.Context, userID, _ int) (*models.Rating, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Rating{ID: 1, UserID: userID, Rating: 8}, nil
}

func (s *stubInteractions) ListRatings(context.Context, int) ([]models.Rating, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Rating{}, nil
}

func (s *stubInteractions) DeleteRating(context.Context, int, int) error {
	return s.err
}

type stubRecs struct {
	err       error
	lastLimit int
}

func (s *stubRecs) Personalized(_ context.Context, userID, limit int) (*models.RecommendationResponse, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return &models.RecommendationResponse{UserID: userID, PreferredGenres: []int64{18}, Recommendations: []models.MovieSummary{}}, nil
}

func (s *stubRecs) PrecomputeAll(context.Context) (*models.PrecomputeReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PrecomputeReport{Users: 4, Cached: 3, Failed: 1}, nil
}

type stubAnalytics struct {
	err       error
	lastLimit int
}

func (s *stubAnalytics) Report(_ context.Context, limit int) (*models.AnalyticsReport, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return &models.AnalyticsReport{
		Stats:   models.APIStats{TotalUsers: 3, AverageRating: 7.67},
		Popular: models.PopularityStats{MostFavorited: []models.FavoriteCount{}, MostRated: []models.RatingCount{}},
	}, nil
}

type testApp struct {
	app          *fiber.App
	movies       *stubMovies
	interactions *stubInteractions
	recs         *stubRecs
	analytics    *stubAnalytics
}

func newTestApp() *testApp {
	ta := &testApp{movies: &stubMovies{}, interactions: &stubInteractions{}, recs: &stubRecs{}, analytics: &stubAnalytics{}}
	ta.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	api := ta.app.Group("/api/v1")
	NewMovieHandler(ta.movies).Register(api)
	NewUserHandler(ta.interactions, ta.recs).Register(api)
	NewAdminHandler(ta.analytics, ta.recs).Register(api)
	return ta
}

func (ta *testApp) do(t *testing.T, method, target, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestStatusFor(t *testing.T) {
	upstream404 := &tmdb.Error{Kind: tmdb.KindStatus, Endpoint: "details", StatusCode: http.StatusNotFound, Err: errors.New("nope")}
	upstream500 := &tmdb.Error{Kind: tmdb.KindStatus, Endpoint: "details", StatusCode: http.StatusInternalServerError, Err: errors.New("boom")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("page: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{"rating range", models.ErrRatingOutOfRange, http.StatusBadRequest},
		{"not found", fmt.Errorf("get user: %w", models.ErrNotFound), http.StatusNotFound},
		{"conflict", models.ErrConflict, http.StatusConflict},
		{"upstream down", fmt.Errorf("details: %w: %w", models.ErrUpstreamUnavailable, upstream500), http.StatusBadGateway},
		{"upstream 404", fmt.Errorf("details: %w: %w", models.ErrUpstreamUnavailable, upstream404), http.StatusNotFound},
		{"fiber error", fiber.NewError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestTrending_Defaults(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodGet, "/api/v1/movies/trending", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "week", ta.movies.lastWindow)
	assert.Equal(t, 1, ta.movies.lastPage)
	assert.Contains(t, body, "Fight Club")

	_, _ = ta.do(t, http.MethodGet, "/api/v1/movies/trending?time_window=day&page=3", "")
	assert.Equal(t, "day", ta.movies.lastWindow)
	assert.Equal(t, 3, ta.movies.lastPage)
}

func TestMovies_ErrorMapping(t *testing.T) {
	ta := newTestApp()

	ta.movies.err = fmt.Errorf("%w: time_window must be 'day' or 'week'", models.ErrInvalidInput)
	resp, body := ta.do(t, http.MethodGet, "/api/v1/movies/trending?time_window=month", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "time_window")

	ta.movies.err = fmt.Errorf("popular: %w: %w", models.ErrUpstreamUnavailable,
		&tmdb.Error{Kind: tmdb.KindTimeout, Endpoint: "popular", Err: context.DeadlineExceeded})
	resp, body = ta.do(t, http.MethodGet, "/api/v1/movies/popular", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, body, "deadline", "upstream detail must not leak")

	ta.movies.err = fmt.Errorf("details: %w: %w", models.ErrUpstreamUnavailable,
		&tmdb.Error{Kind: tmdb.KindStatus, Endpoint: "details", StatusCode: http.StatusNotFound, Err: errors.New("x")})
	resp, body = ta.do(t, http.MethodGet, "/api/v1/movies/999999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"movie not found"}`, body)
}

func TestGetMovie_InvalidID(t *testing.T) {
	ta := newTestApp()

	for _, id := range []string{"abc", "0", "-5"} {
		resp, _ := ta.do(t, http.MethodGet, "/api/v1/movies/"+id, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
	}
}

func TestSearch_PassesQuery(t *testing.T) {
	ta := newTestApp()

	resp, _ := ta.do(t, http.MethodGet, "/api/v1/movies/search?q=Fight%20Club&page=2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Fight Club", ta.movies.lastQuery)
	assert.Equal(t, 2, ta.movies.lastPage)
}

func TestSync(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodPost, "/api/v1/admin/sync?pages=2&clear_cache=true", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, ta.movies.lastPages)
	assert.True(t, ta.movies.lastClear)

	var out struct {
		Report models.SyncReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 3, out.Report.Created)
}

func TestCreateUser(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodPost, "/api/v1/users", `{"username":"tyler","email":"tyler@example.com"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, body, `"username":"tyler"`)

	resp, _ = ta.do(t, http.MethodPost, "/api/v1/users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ta.interactions.err = fmt.Errorf("create user: %w", models.ErrConflict)
	resp, _ = ta.do(t, http.MethodPost, "/api/v1/users", `{"username":"tyler","email":"tyler@example.com"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFavorites(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodPost, "/api/v1/users/1/favorites", `{"movie_id":550}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.MovieRefRequest{MovieID: 550}, ta.interactions.lastReq)
	assert.Contains(t, body, `"kind":"favorite"`)

	resp, body = ta.do(t, http.MethodGet, "/api/v1/users/1/watchlist", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"kind":"watchlist"`)
	assert.Contains(t, body, `"count":1`)

	resp, _ = ta.do(t, http.MethodDelete, "/api/v1/users/1/favorites/550", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ta.interactions.err = fmt.Errorf("remove favorite: %w", models.ErrNotFound)
	resp, _ = ta.do(t, http.MethodDelete, "/api/v1/users/1/favorites/550", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRatings(t *testing.T) {
	ta := newTestApp()

	resp, _ := ta.do(t, http.MethodPost, "/api/v1/users/1/ratings", `{"movie_id":550,"rating":8}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.RatingRequest{MovieID: 550, Rating: 8}, ta.interactions.lastReq)

	resp, _ = ta.do(t, http.MethodPatch, "/api/v1/users/1/ratings/550", `{"rating":4}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.UpdateRatingRequest{Rating: 4}, ta.interactions.lastReq)

	resp, _ = ta.do(t, http.MethodGet, "/api/v1/users/1/ratings/550", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/api/v1/users/1/ratings/550", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ta.interactions.err = fmt.Errorf("%w: got 11", models.ErrRatingOutOfRange)
	resp, body := ta.do(t, http.MethodPost, "/api/v1/users/1/ratings", `{"movie_id":550,"rating":11}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "between 1 and 10")
}

func TestRecommendations(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodGet, "/api/v1/users/1/recommendations", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 20, ta.recs.lastLimit)
	assert.Contains(t, body, `"preferred_genres":[18]`)

	_, _ = ta.do(t, http.MethodGet, "/api/v1/users/1/recommendations?limit=5", "")
	assert.Equal(t, 5, ta.recs.lastLimit)

	ta.recs.err = fmt.Errorf("get user: %w", models.ErrNotFound)
	resp, _ = ta.do(t, http.MethodGet, "/api/v1/users/9/recommendations", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedQueryParams(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		param  string
	}{
		{"trending page", http.MethodGet, "/api/v1/movies/trending?page=abc", "page"},
		{"popular page", http.MethodGet, "/api/v1/movies/popular?page=abc", "page"},
		{"search page", http.MethodGet, "/api/v1/movies/search?q=matrix&page=1.5", "page"},
		{"related page", http.MethodGet, "/api/v1/movies/550/recommendations?page=two", "page"},
		{"sync pages", http.MethodPost, "/api/v1/admin/sync?pages=many", "pages"},
		{"sync clear_cache", http.MethodPost, "/api/v1/admin/sync?clear_cache=maybe", "clear_cache"},
		{"recommendations limit", http.MethodGet, "/api/v1/users/1/recommendations?limit=xyz", "limit"},
		{"analytics limit", http.MethodGet, "/api/v1/admin/analytics?limit=ten", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp()

			resp, body := ta.do(t, tt.method, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Contains(t, out.Error, tt.param)

			assert.Zero(t, ta.movies.lastPage, "service must not be called")
			assert.Zero(t, ta.movies.lastPages)
			assert.Zero(t, ta.recs.lastLimit)
			assert.Zero(t, ta.analytics.lastLimit)
		})
	}
}

func TestAnalytics(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodGet, "/api/v1/admin/analytics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, ta.analytics.lastLimit)
	assert.Contains(t, body, `"total_users":3`)

	_, _ = ta.do(t, http.MethodGet, "/api/v1/admin/analytics?limit=3", "")
	assert.Equal(t, 3, ta.analytics.lastLimit)

	ta.analytics.err = fmt.Errorf("%w: limit must be between 1 and 50", models.ErrInvalidInput)
	resp, _ = ta.do(t, http.MethodGet, "/api/v1/admin/analytics?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrecompute(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, http.MethodPost, "/api/v1/admin/recommendations/precompute", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Report models.PrecomputeReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, models.PrecomputeReport{Users: 4, Cached: 3, Failed: 1}, out.Report)

	ta.recs.err = errors.New("pq: connection refused")
	resp, body = ta.do(t, http.MethodPost, "/api/v1/admin/recommendations/precompute", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "pq:")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ta := newTestApp()
	ta.interactions.err = errors.New("pq: connection refused")

	resp, body := ta.do(t, http.MethodGet, "/api/v1/users/1", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"failed to retrieve user"}`, body)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		checks []HealthCheck
		code   int
		status string
	}{
		{"all up", []HealthCheck{{Name: "postgres", Critical: true, Check: ok}, {Name: "redis", Check: ok}}, http.StatusOK, "ok"},
		{"cache down", []HealthCheck{{Name: "postgres", Critical: true, Check: ok}, {Name: "redis", Check: down}}, http.StatusOK, "degraded"},
		{"database down", []HealthCheck{{Name: "postgres", Critical: true, Check: down}, {Name: "redis", Check: ok}}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", Health(tt.checks...))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var out map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.status, out["status"])
		})
	}
}

func TestSwagger(t *testing.T) {
	app := fiber.New()
	RegisterSwagger(app, "Movie Discovery API", []byte("openapi: 3.0.3\n"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/swagger/doc.yaml", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<title>Movie Discovery API - Swagger UI</title>")
	assert.Contains(t, string(raw), "url: '/swagger/doc.yaml'")
}
