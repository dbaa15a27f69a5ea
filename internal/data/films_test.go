package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embracexyz/filmorate/internal/validator"
)

func validFilm() *Film {
	return &Film{
		Title:       "Pulp Fiction",
		Description: "Interlocking stories of LA criminals",
		ReleaseDate: NewDate(1994, time.January, 1),
		Duration:    120,
		Rating:      &Rating{ID: 3},
		Genres:      []Genre{{ID: 2}},
	}
}

func TestValidateFilm(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Film)
		field  string
		msg    string
	}{
		{"blank title", func(f *Film) { f.Title = "  " }, "title", "must be provided"},
		{"long description", func(f *Film) { f.Description = string(make([]byte, 201)) }, "description", "must not be more than 200 bytes long"},
		{"missing release date", func(f *Film) { f.ReleaseDate = Date{} }, "release_date", "must be provided"},
		{"release date too early", func(f *Film) { f.ReleaseDate = NewDate(1800, time.January, 1) }, "release_date", "must not be before 1895-12-28 (got 1800-01-01)"},
		{"release date one day early", func(f *Film) { f.ReleaseDate = NewDate(1895, time.December, 27) }, "release_date", "must not be before 1895-12-28 (got 1895-12-27)"},
		{"zero duration", func(f *Film) { f.Duration = 0 }, "duration", "must be a positive integer (got 0)"},
		{"missing rating", func(f *Film) { f.Rating = nil }, "mpa", "must be provided"},
		{"rating without id", func(f *Film) { f.Rating = &Rating{} }, "mpa", "must reference a rating by id (got 0)"},
		{"duplicate genres", func(f *Film) { f.Genres = []Genre{{ID: 2}, {ID: 1}, {ID: 2}} }, "genres", "must not contain duplicate values"},
		{"duplicate directors", func(f *Film) { f.Directors = []Director{{ID: 4}, {ID: 4}} }, "directors", "must not contain duplicate values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			film := validFilm()
			tt.mutate(film)

			v := validator.New()
			ValidateFilm(v, film)

			require.False(t, v.Valid())
			assert.Equal(t, tt.msg, v.FieldErrors[tt.field])
		})
	}
}

func TestValidateFilmAcceptsFloorDate(t *testing.T) {
	film := validFilm()
	film.ReleaseDate = MinReleaseDate

	v := validator.New()
	ValidateFilm(v, film)
	assert.True(t, v.Valid(), v.FieldErrors)
}

func TestWithLikeLeavesReceiverUntouched(t *testing.T) {
	film := validFilm()
	film.Likes = []int64{2, 7}

	liked := film.WithLike(5)
	assert.Equal(t, []int64{2, 5, 7}, liked.Likes)
	assert.Equal(t, []int64{2, 7}, film.Likes)

	again := liked.WithLike(5)
	assert.Equal(t, []int64{2, 5, 7}, again.Likes)

	unliked := liked.WithoutLike(2)
	assert.Equal(t, []int64{5, 7}, unliked.Likes)
	assert.Equal(t, []int64{2, 5, 7}, liked.Likes)

	noop := film.WithoutLike(99)
	assert.Equal(t, []int64{2, 7}, noop.Likes)
	assert.True(t, noop.LikedBy(7))
	assert.False(t, noop.LikedBy(99))
}

func TestWithLikeOnNilLikes(t *testing.T) {
	film := validFilm()

	unliked := film.WithoutLike(1)
	assert.NotNil(t, unliked.Likes)
	assert.Empty(t, unliked.Likes)
	assert.Equal(t, 1, film.WithLike(1).LikeCount())
}

func TestRelationIDsAreDeduplicated(t *testing.T) {
	film := validFilm()
	film.Genres = []Genre{{ID: 3}, {ID: 1}, {ID: 3}}
	film.Directors = []Director{{ID: 9}, {ID: 9}}

	assert.Equal(t, []int64{3, 1}, film.GenreIDs())
	assert.Equal(t, []int64{9}, film.DirectorIDs())
	assert.Len(t, film.Genres, 3)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\`, escapeLike(`c:\`))
}
