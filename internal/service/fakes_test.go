package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"movie-discovery/internal/cache"
	"movie-discovery/internal/models"
	"movie-discovery/internal/repository"
	"movie-discovery/internal/tmdb"
)

func strPtr(s string) *string { return &s }

func fightClub() tmdb.Movie {
	return tmdb.Movie{
		ID:          550,
		Title:       "Fight Club",
		ReleaseDate: "1999-10-15",
		PosterPath:  strPtr("/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg"),
		Popularity:  61.4,
		VoteAverage: 8.4,
		VoteCount:   27000,
		GenreIDs:    []int64{18},
	}
}

func samplePage(movies ...tmdb.Movie) func() *tmdb.MoviePage {
	return func() *tmdb.MoviePage {
		return &tmdb.MoviePage{
			Page:         1,
			Results:      slices.Clone(movies),
			TotalPages:   1,
			TotalResults: len(movies),
		}
	}
}

// fakeCatalog serves canned pages and counts calls.
type fakeCatalog struct {
	mu     sync.Mutex
	calls  map[string]int
	page   func() *tmdb.MoviePage
	detail func(id int) (*tmdb.MovieDetail, error)
	err    error
}

func newFakeCatalog(page func() *tmdb.MoviePage) *fakeCatalog {
	return &fakeCatalog{calls: make(map[string]int), page: page}
}

func (c *fakeCatalog) record(endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[endpoint]++
	return c.err
}

func (c *fakeCatalog) count(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[endpoint]
}

func (c *fakeCatalog) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *fakeCatalog) Trending(_ context.Context, _ string, _ int) (*tmdb.MoviePage, error) {
	if err := c.record("trending"); err != nil {
		return nil, err
	}
	return c.page(), nil
}

func (c *fakeCatalog) Popular(_ context.Context, _ int) (*tmdb.MoviePage, error) {
	if err := c.record("popular"); err != nil {
		return nil, err
	}
	return c.page(), nil
}

func (c *fakeCatalog) Details(_ context.Context, id int) (*tmdb.MovieDetail, error) {
	if err := c.record("details"); err != nil {
		return nil, err
	}
	if c.detail != nil {
		return c.detail(id)
	}
	m := fightClub()
	m.ID = id
	m.GenreIDs = nil
	return &tmdb.MovieDetail{Movie: m, Genres: []tmdb.Genre{{ID: 18, Name: "Drama"}}}, nil
}

func (c *fakeCatalog) Search(_ context.Context, _ string, _ int) (*tmdb.MoviePage, error) {
	if err := c.record("search"); err != nil {
		return nil, err
	}
	return c.page(), nil
}

func (c *fakeCatalog) Recommendations(_ context.Context, _, _ int) (*tmdb.MoviePage, error) {
	if err := c.record("recommendations"); err != nil {
		return nil, err
	}
	return c.page(), nil
}

// fakeMovieStore keeps movies in memory keyed by TMDB id.
type fakeMovieStore struct {
	mu      sync.Mutex
	byTMDB  map[int]models.Movie
	nextID  int
	failOn  map[int]bool
	upserts int
}

func newFakeMovieStore() *fakeMovieStore {
	return &fakeMovieStore{byTMDB: make(map[int]models.Movie), failOn: make(map[int]bool)}
}

func (s *fakeMovieStore) UpsertMovie(_ context.Context, m *models.Movie) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failOn[m.TMDBId] {
		return false, fmt.Errorf("failed to upsert movie: connection reset")
	}
	existing, ok := s.byTMDB[m.TMDBId]
	if ok {
		m.ID = existing.ID
	} else {
		s.nextID++
		m.ID = s.nextID
	}
	s.byTMDB[m.TMDBId] = *m
	return !ok, nil
}

func (s *fakeMovieStore) GetMovieByTMDBId(_ context.Context, tmdbID int) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byTMDB[tmdbID]
	if !ok {
		return nil, fmt.Errorf("get movie: %w", models.ErrNotFound)
	}
	return &m, nil
}

func (s *fakeMovieStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *fakeMovieStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byTMDB)
}

// recordingStore remembers the TTL of every write.
type recordingStore struct {
	*cache.MemoryStore
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore(time.Minute), ttls: make(map[string]time.Duration)}
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
	s.MemoryStore.Set(ctx, key, value, ttl)
}

func (s *recordingStore) ttl(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.ttls[key]
	return d, ok
}

func (s *recordingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ttls)
}

// fakeUsers is an in-memory user store.
type fakeUsers struct {
	mu    sync.Mutex
	users map[int]models.User
}

func newFakeUsers(ids ...int) *fakeUsers {
	u := &fakeUsers{users: make(map[int]models.User)}
	for _, id := range ids {
		u.users[id] = models.User{ID: id, Username: fmt.Sprintf("user%d", id), Email: fmt.Sprintf("user%d@example.com", id)}
	}
	return u
}

func (u *fakeUsers) GetUser(_ context.Context, id int) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", models.ErrNotFound)
	}
	return &user, nil
}

func (u *fakeUsers) CreateUser(_ context.Context, req models.CreateUserRequest) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if existing.Username == req.Username {
			return nil, fmt.Errorf("create user: %w", models.ErrConflict)
		}
	}
	user := models.User{ID: len(u.users) + 1, Username: req.Username, Email: req.Email, CreatedAt: time.Now()}
	u.users[user.ID] = user
	return &user, nil
}

// fakeProfiles serves a fixed profile and records the threshold it was asked for.
type fakeProfiles struct {
	profile   *models.InteractionProfile
	err       error
	threshold int
	calls     int
	active    []int
	failUser  int
}

func (p *fakeProfiles) GetProfile(_ context.Context, userID, likedThreshold int) (*models.InteractionProfile, error) {
	p.threshold = likedThreshold
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.failUser != 0 && userID == p.failUser {
		return nil, fmt.Errorf("load rated movies: connection reset")
	}
	return p.profile, nil
}

func (p *fakeProfiles) ActiveUserIDs(context.Context) ([]int, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.active, nil
}

// fakeCandidates applies a CandidateFilter to an in-memory catalog the way the
// SQL query does.
type fakeCandidates struct {
	movies []models.Movie
	last   repository.CandidateFilter
}

func (c *fakeCandidates) ListCandidates(_ context.Context, f repository.CandidateFilter) ([]models.Movie, error) {
	c.last = f
	out := make([]models.Movie, 0)
	for _, m := range c.movies {
		if m.VoteAverage < f.MinVoteAverage || m.VoteCount < f.MinVoteCount || slices.Contains(f.ExcludeTMDBIds, m.TMDBId) {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b models.Movie) int {
		switch {
		case a.Popularity != b.Popularity:
			if a.Popularity > b.Popularity {
				return -1
			}
			return 1
		case a.VoteAverage != b.VoteAverage:
			if a.VoteAverage > b.VoteAverage {
				return -1
			}
			return 1
		default:
			return a.TMDBId - b.TMDBId
		}
	})
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
