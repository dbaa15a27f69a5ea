package discovery

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embracexyz/filmorate/internal/data"
	"github.com/embracexyz/filmorate/internal/data/mocks"
	"github.com/embracexyz/filmorate/internal/jsonlog"
)

const (
	ratingPG13 = 3
	genreDrama = 2
	genreComic = 1
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []data.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event data.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fixture struct {
	svc    *Service
	models data.Models
	store  *mocks.Store
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	models, store := mocks.NewModels()
	events := &recordingPublisher{}
	svc := NewService(models, events, jsonlog.New(io.Discard, jsonlog.OFF))
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &fixture{svc: svc, models: models, store: store, events: events}
}

func (f *fixture) film(t *testing.T, title string, released data.Date, genres ...int64) *data.Film {
	t.Helper()
	film := &data.Film{
		Title:       title,
		Description: "about " + title,
		ReleaseDate: released,
		Duration:    100,
		Rating:      &data.Rating{ID: ratingPG13},
	}
	for _, id := range genres {
		film.Genres = append(film.Genres, data.Genre{ID: id})
	}
	created, err := f.svc.CreateFilm(context.Background(), film)
	require.NoError(t, err)
	return created
}

func (f *fixture) user(t *testing.T, login string) int64 {
	t.Helper()
	user := &data.User{Email: login + "@example.com", Login: login, Name: login, Birthday: data.NewDate(1990, time.May, 1)}
	require.NoError(t, f.models.Users.Insert(context.Background(), user))
	return user.ID
}

func (f *fixture) director(t *testing.T, name string) data.Director {
	t.Helper()
	d := &data.Director{Name: name}
	require.NoError(t, f.models.Directors.Insert(context.Background(), d))
	return *d
}

func (f *fixture) like(t *testing.T, filmID int64, users ...int64) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, f.svc.AddLike(context.Background(), filmID, u))
	}
}

func year(y int) data.Date {
	return data.NewDate(y, time.June, 1)
}

func TestCreateFilmRejectsReleaseBeforeFloor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFilm(context.Background(), &data.Film{
		Title:       "F2",
		ReleaseDate: data.NewDate(1800, time.January, 1),
		Duration:    90,
		Rating:      &data.Rating{ID: ratingPG13},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must not be before 1895-12-28 (got 1800-01-01)", verr.Errors["release_date"])
	assert.Zero(t, f.store.FilmCount())

	films, err := f.svc.ListFilms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, films)
}

func TestCreateFilmRequiresRating(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFilm(context.Background(), &data.Film{
		Title:       "No rating",
		ReleaseDate: year(2000),
		Duration:    90,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be provided", verr.Errors["mpa"])
	assert.Contains(t, err.Error(), "mpa: must be provided")
	assert.Zero(t, f.store.FilmCount())
}

func TestCreateFilmReturnsHydratedFilm(t *testing.T) {
	f := newFixture(t)
	nolan := f.director(t, "Christopher Nolan")

	film, err := f.svc.CreateFilm(context.Background(), &data.Film{
		Title:       "Memento",
		ReleaseDate: data.NewDate(2000, time.September, 5),
		Duration:    113,
		Rating:      &data.Rating{ID: ratingPG13},
		Genres:      []data.Genre{{ID: genreDrama}, {ID: genreDrama}},
		Directors:   []data.Director{{ID: nolan.ID}},
	})
	require.NoError(t, err)

	assert.NotZero(t, film.ID)
	assert.Equal(t, "PG-13", film.Rating.Name)
	assert.Equal(t, []data.Genre{{ID: genreDrama, Name: "Drama"}}, film.Genres)
	assert.Equal(t, []data.Director{nolan}, film.Directors)
	assert.Equal(t, []int64{}, film.Likes)
}

func TestCreateFilmWithUnknownGenre(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFilm(context.Background(), &data.Film{
		Title:       "Ghost genre",
		ReleaseDate: year(2001),
		Duration:    90,
		Rating:      &data.Rating{ID: ratingPG13},
		Genres:      []data.Genre{{ID: 99}},
	})
	assert.ErrorIs(t, err, data.ErrInvalidReference)
	assert.Zero(t, f.store.FilmCount())
}

func TestUpdateFilm(t *testing.T) {
	f := newFixture(t)
	film := f.film(t, "Draft", year(2010), genreDrama)

	t.Run("replaces scalars and genres", func(t *testing.T) {
		film.Title = "Final"
		film.Genres = []data.Genre{{ID: genreComic}}

		updated, err := f.svc.UpdateFilm(context.Background(), film)
		require.NoError(t, err)
		assert.Equal(t, "Final", updated.Title)
		assert.Equal(t, []data.Genre{{ID: genreComic, Name: "Comedy"}}, updated.Genres)
	})

	t.Run("rejects early release date without writing", func(t *testing.T) {
		bad := *film
		bad.ReleaseDate = data.NewDate(1800, time.January, 1)

		_, err := f.svc.UpdateFilm(context.Background(), &bad)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		stored, err := f.svc.GetFilm(context.Background(), film.ID)
		require.NoError(t, err)
		assert.Equal(t, year(2010), stored.ReleaseDate)
	})

	t.Run("missing film", func(t *testing.T) {
		ghost := *film
		ghost.ID = 404
		_, err := f.svc.UpdateFilm(context.Background(), &ghost)
		assert.ErrorIs(t, err, data.ErrRecordNotFound)
	})
}

func TestLikeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	film := f.film(t, "Liked", year(2000))
	u := f.user(t, "u1")

	f.like(t, film.ID, u, u)
	assert.Equal(t, []int64{u}, f.store.LikeRows(film.ID))

	require.NoError(t, f.svc.RemoveLike(context.Background(), film.ID, u))
	assert.Empty(t, f.store.LikeRows(film.ID))

	// removing a like that is not there is not an error
	require.NoError(t, f.svc.RemoveLike(context.Background(), film.ID, u))
	assert.Empty(t, f.store.LikeRows(film.ID))

	require.Len(t, f.events.events, 4)
	assert.Equal(t, data.OperationAdd, f.events.events[0].Operation)
	assert.Equal(t, data.OperationRemove, f.events.events[3].Operation)
	assert.Equal(t, int64(1700000000000), f.events.events[0].Timestamp)
	assert.Equal(t, film.ID, f.events.events[0].EntityID)
}

func TestLikeRequiresFilmAndUser(t *testing.T) {
	f := newFixture(t)
	film := f.film(t, "Lonely", year(2000))
	u := f.user(t, "u1")

	assert.ErrorIs(t, f.svc.AddLike(context.Background(), 999, u), data.ErrRecordNotFound)
	assert.ErrorIs(t, f.svc.AddLike(context.Background(), film.ID, 999), data.ErrRecordNotFound)
	assert.ErrorIs(t, f.svc.RemoveLike(context.Background(), film.ID, 999), data.ErrRecordNotFound)

	assert.Zero(t, f.store.SaveLikesCalls)
	assert.Empty(t, f.events.events)
}

func TestLikeSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("bus closed")
	film := f.film(t, "Quiet", year(2000))
	u := f.user(t, "u1")

	require.NoError(t, f.svc.AddLike(context.Background(), film.ID, u))
	assert.Equal(t, []int64{u}, f.store.LikeRows(film.ID))
}

func TestPopularFilmsIsMonotonic(t *testing.T) {
	f := newFixture(t)
	users := []int64{f.user(t, "a"), f.user(t, "b"), f.user(t, "c")}

	one := f.film(t, "one", year(2001))
	two := f.film(t, "two", year(2002))
	three := f.film(t, "three", year(2003))
	four := f.film(t, "four", year(2004))

	f.like(t, two.ID, users...)
	f.like(t, three.ID, users[0])
	f.like(t, four.ID, users[1])

	films, err := f.svc.PopularFilms(context.Background(), data.PopularFilter{Count: 10})
	require.NoError(t, err)

	assert.Equal(t, []int64{two.ID, three.ID, four.ID, one.ID}, ids(films))
	for i := 1; i < len(films); i++ {
		assert.GreaterOrEqual(t, films[i-1].LikeCount(), films[i].LikeCount())
	}
	assert.NotEmpty(t, films[0].Rating.Name)
}

func TestPopularFilmsTruncatesToPrefix(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user(t, "a"), f.user(t, "b")
	for i, likes := range [][]int64{{u1}, {}, {u1, u2}, {u2}} {
		film := f.film(t, "film", year(2000+i))
		f.like(t, film.ID, likes...)
	}

	full, err := f.svc.PopularFilms(context.Background(), data.PopularFilter{Count: 1000})
	require.NoError(t, err)
	require.Len(t, full, 4)

	for n := 0; n <= 6; n++ {
		got, err := f.svc.PopularFilms(context.Background(), data.PopularFilter{Count: n})
		require.NoError(t, err)
		require.Len(t, got, min(n, 4), "count=%d", n)
		assert.Equal(t, ids(full[:len(got)]), ids(got), "count=%d", n)
	}
}

func TestPopularFilmsFilters(t *testing.T) {
	f := newFixture(t)
	drama2000 := f.film(t, "drama 2000", year(2000), genreDrama)
	comedy2000 := f.film(t, "comedy 2000", year(2000), genreComic)
	drama2010 := f.film(t, "drama 2010", year(2010), genreDrama, genreComic)

	genre := func(id int64) *int64 { return &id }
	yr := func(y int) *int { return &y }

	tests := []struct {
		name   string
		filter data.PopularFilter
		want   []int64
	}{
		{"unfiltered", data.PopularFilter{Count: 10}, []int64{drama2000.ID, comedy2000.ID, drama2010.ID}},
		{"genre", data.PopularFilter{Count: 10, GenreID: genre(genreDrama)}, []int64{drama2000.ID, drama2010.ID}},
		{"year", data.PopularFilter{Count: 10, Year: yr(2000)}, []int64{drama2000.ID, comedy2000.ID}},
		{"genre and year", data.PopularFilter{Count: 10, GenreID: genre(genreComic), Year: yr(2010)}, []int64{drama2010.ID}},
		{"nothing matches", data.PopularFilter{Count: 10, Year: yr(1999)}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			films, err := f.svc.PopularFilms(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(films))
		})
	}
}

func TestCommonFilmsIsSymmetric(t *testing.T) {
	f := newFixture(t)
	u, friend, other := f.user(t, "u"), f.user(t, "friend"), f.user(t, "other")

	shared := f.film(t, "shared", year(2000))
	sharedPopular := f.film(t, "shared popular", year(2001))
	onlyMine := f.film(t, "mine", year(2002))

	f.like(t, shared.ID, u, friend)
	f.like(t, sharedPopular.ID, u, friend, other)
	f.like(t, onlyMine.ID, u)

	forward, err := f.svc.CommonFilms(context.Background(), u, friend)
	require.NoError(t, err)
	backward, err := f.svc.CommonFilms(context.Background(), friend, u)
	require.NoError(t, err)

	assert.Equal(t, []int64{sharedPopular.ID, shared.ID}, ids(forward))
	assert.ElementsMatch(t, ids(forward), ids(backward))
	assert.Equal(t, 3, forward[0].LikeCount())

	self, err := f.svc.CommonFilms(context.Background(), u, u)
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestFilmsByDirector(t *testing.T) {
	f := newFixture(t)
	nolan := f.director(t, "Christopher Nolan")
	idle := f.director(t, "Nobody Yet")
	u1, u2 := f.user(t, "a"), f.user(t, "b")

	newFilm := func(title string, released data.Date) *data.Film {
		film, err := f.svc.CreateFilm(context.Background(), &data.Film{
			Title: title, ReleaseDate: released, Duration: 120,
			Rating:    &data.Rating{ID: ratingPG13},
			Directors: []data.Director{{ID: nolan.ID}},
		})
		require.NoError(t, err)
		return film
	}
	inception := newFilm("Inception", data.NewDate(2010, time.July, 16))
	memento := newFilm("Memento", data.NewDate(2000, time.September, 5))
	tenet := newFilm("Tenet", data.NewDate(2020, time.August, 26))
	f.like(t, tenet.ID, u1, u2)
	f.like(t, memento.ID, u1)

	byYear, err := f.svc.FilmsByDirector(context.Background(), nolan.ID, data.SortByYear)
	require.NoError(t, err)
	assert.Equal(t, []int64{memento.ID, inception.ID, tenet.ID}, ids(byYear))
	assert.Equal(t, []data.Director{nolan}, byYear[0].Directors)

	byLikes, err := f.svc.FilmsByDirector(context.Background(), nolan.ID, data.SortByLikes)
	require.NoError(t, err)
	assert.Equal(t, []int64{tenet.ID, memento.ID, inception.ID}, ids(byLikes))

	_, err = f.svc.FilmsByDirector(context.Background(), idle.ID, data.SortByLikes)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
	_, err = f.svc.FilmsByDirector(context.Background(), 999, data.SortByYear)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func TestSearchUnionKeepsDuplicates(t *testing.T) {
	f := newFixture(t)
	crab := f.director(t, "Crab Director")

	create := func(title string, directors ...data.Director) *data.Film {
		film, err := f.svc.CreateFilm(context.Background(), &data.Film{
			Title: title, ReleaseDate: year(2000), Duration: 90,
			Rating:    &data.Rating{ID: ratingPG13},
			Directors: directors,
		})
		require.NoError(t, err)
		return film
	}
	both := create("Crab People", crab)
	titleOnly := create("CRAB cakes")
	directorOnly := create("Lobster", crab)
	create("Unrelated")

	tests := []struct {
		by   data.SearchField
		want []int64
	}{
		{data.SearchByTitle, []int64{titleOnly.ID, both.ID}},
		{data.SearchByDirector, []int64{directorOnly.ID, both.ID}},
		{data.SearchByTitleDirector, []int64{directorOnly.ID, titleOnly.ID, both.ID, both.ID}},
		{data.SearchByDirectorTitle, []int64{directorOnly.ID, titleOnly.ID, both.ID, both.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			films, err := f.svc.Search(context.Background(), "crab", tt.by)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(films))
			assert.True(t, slices.IsSortedFunc(films, func(a, b *data.Film) int { return int(b.ID - a.ID) }))
		})
	}

	films, err := f.svc.Search(context.Background(), "crab", data.SearchByTitleDirector)
	require.NoError(t, err)
	assert.Equal(t, []data.Director{crab}, films[len(films)-1].Directors)
}

func TestLikedFilmRanksFirst(t *testing.T) {
	f := newFixture(t)
	f.film(t, "Filler", year(1990))
	f1 := f.film(t, "F1", data.NewDate(1994, time.January, 1), genreDrama)
	f.film(t, "Filler 2", year(1991))
	u1 := f.user(t, "u1")

	f.like(t, f1.ID, u1)

	films, err := f.svc.PopularFilms(context.Background(), data.PopularFilter{Count: 5})
	require.NoError(t, err)
	require.NotEmpty(t, films)
	assert.Equal(t, f1.ID, films[0].ID)
	assert.Equal(t, 1, films[0].LikeCount())
	assert.Equal(t, "PG-13", films[0].Rating.Name)
	assert.Equal(t, []data.Genre{{ID: genreDrama, Name: "Drama"}}, films[0].Genres)
	for _, other := range films[1:] {
		assert.Zero(t, other.LikeCount())
	}
}

func TestDeleteFilm(t *testing.T) {
	f := newFixture(t)
	film := f.film(t, "Gone", year(2000))

	require.NoError(t, f.svc.DeleteFilm(context.Background(), film.ID))
	assert.ErrorIs(t, f.svc.DeleteFilm(context.Background(), film.ID), data.ErrRecordNotFound)

	_, err := f.svc.GetFilm(context.Background(), film.ID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}
