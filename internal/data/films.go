package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/embracexyz/filmorate/internal/validator"
)

// 电影史的起点：卢米埃尔兄弟首次公开放映
var MinReleaseDate = NewDate(1895, time.December, 28)

var errMissingRating = errors.New("film has no rating")

type Film struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ReleaseDate Date       `json:"release_date"`
	Duration    int32      `json:"duration"`
	Rating      *Rating    `json:"mpa"`
	Genres      []Genre    `json:"genres"`
	Directors   []Director `json:"directors"`
	Likes       []int64    `json:"likes"`
}

func (f *Film) LikeCount() int {
	return len(f.Likes)
}

func (f *Film) LikedBy(userID int64) bool {
	_, found := slices.BinarySearch(f.Likes, userID)
	return found
}

// WithLike returns a copy of f whose like set also contains userID.
// f itself is left untouched.
func (f *Film) WithLike(userID int64) *Film {
	c := f.clone()
	if i, found := slices.BinarySearch(c.Likes, userID); !found {
		c.Likes = slices.Insert(c.Likes, i, userID)
	}
	return c
}

// WithoutLike returns a copy of f whose like set no longer contains userID.
func (f *Film) WithoutLike(userID int64) *Film {
	c := f.clone()
	if i, found := slices.BinarySearch(c.Likes, userID); found {
		c.Likes = slices.Delete(c.Likes, i, i+1)
	}
	return c
}

func (f *Film) clone() *Film {
	c := *f
	if f.Rating != nil {
		r := *f.Rating
		c.Rating = &r
	}
	c.Genres = slices.Clone(f.Genres)
	c.Directors = slices.Clone(f.Directors)
	c.Likes = slices.Clone(f.Likes)
	if c.Likes == nil {
		c.Likes = []int64{}
	}
	return &c
}

func (f *Film) GenreIDs() []int64 {
	ids := make([]int64, 0, len(f.Genres))
	for _, g := range f.Genres {
		ids = append(ids, g.ID)
	}
	return uniqueIDs(ids)
}

func (f *Film) DirectorIDs() []int64 {
	ids := make([]int64, 0, len(f.Directors))
	for _, d := range f.Directors {
		ids = append(ids, d.ID)
	}
	return uniqueIDs(ids)
}

// uniqueIDs keeps the first occurrence of every id.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func ValidateFilm(v *validator.Validator, film *Film) {
	v.Check(validator.NotBlank(film.Title), "title", "must be provided")
	v.Check(len(film.Title) <= 500, "title", "must not be more than 500 bytes long")
	v.Check(len(film.Description) <= 200, "description", "must not be more than 200 bytes long")

	v.Check(!film.ReleaseDate.IsZero(), "release_date", "must be provided")
	v.Check(validator.NotBefore(film.ReleaseDate.Time, MinReleaseDate.Time), "release_date",
		fmt.Sprintf("must not be before %s (got %s)", MinReleaseDate, film.ReleaseDate))

	v.Check(film.Duration > 0, "duration", fmt.Sprintf("must be a positive integer (got %d)", film.Duration))

	v.Check(film.Rating != nil, "mpa", "must be provided")
	if film.Rating != nil {
		v.Check(film.Rating.ID > 0, "mpa", fmt.Sprintf("must reference a rating by id (got %d)", film.Rating.ID))
	}

	genreIDs := make([]int64, 0, len(film.Genres))
	for _, g := range film.Genres {
		genreIDs = append(genreIDs, g.ID)
	}
	v.Check(validator.Unique(genreIDs), "genres", "must not contain duplicate values")

	directorIDs := make([]int64, 0, len(film.Directors))
	for _, d := range film.Directors {
		directorIDs = append(directorIDs, d.ID)
	}
	v.Check(validator.Unique(directorIDs), "directors", "must not contain duplicate values")
}

const (
	filmColumns = `f.id, f.name, f.description, f.release_date, f.duration, f.rating_id, r.name`
	filmSource  = `FROM films f JOIN ratings r ON r.id = f.rating_id`
)

type FilmModel struct {
	DB *sql.DB
}

func NewFilmModel(db *sql.DB) FilmModel {
	return FilmModel{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilm(s rowScanner) (*Film, error) {
	var (
		film   Film
		rating Rating
	)
	err := s.Scan(&film.ID, &film.Title, &film.Description, &film.ReleaseDate, &film.Duration, &rating.ID, &rating.Name)
	if err != nil {
		return nil, err
	}
	film.Rating = &rating
	return &film, nil
}

func (m FilmModel) list(ctx context.Context, query string, args ...any) ([]*Film, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	films := []*Film{}
	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, film)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return films, nil
}

func (m FilmModel) Get(ctx context.Context, id int64) (*Film, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `SELECT ` + filmColumns + ` ` + filmSource + ` WHERE f.id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	film, err := scanFilm(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return film, nil
}

func (m FilmModel) GetAll(ctx context.Context) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` ` + filmSource + ` ORDER BY f.id`
	return m.list(ctx, query)
}

func (m FilmModel) GetAllByYear(ctx context.Context, year int) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` ` + filmSource + `
		WHERE EXTRACT(YEAR FROM f.release_date) = $1
		ORDER BY f.id`
	return m.list(ctx, query, year)
}

func (m FilmModel) GetAllByGenre(ctx context.Context, genreID int64) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` ` + filmSource + `
		WHERE f.id IN (SELECT film_id FROM films_genres WHERE genre_id = $1)
		ORDER BY f.id`
	return m.list(ctx, query, genreID)
}

func (m FilmModel) GetAllByGenreAndYear(ctx context.Context, genreID int64, year int) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` ` + filmSource + `
		WHERE f.id IN (SELECT film_id FROM films_genres WHERE genre_id = $1)
		AND EXTRACT(YEAR FROM f.release_date) = $2
		ORDER BY f.id`
	return m.list(ctx, query, genreID, year)
}

// Insert writes the film row together with its genre and director sets in a
// single transaction.
func (m FilmModel) Insert(ctx context.Context, film *Film) error {
	if film.Rating == nil {
		return errMissingRating
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO films (name, description, release_date, duration, rating_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	args := []any{film.Title, film.Description, film.ReleaseDate, film.Duration, film.Rating.ID}

	var id int64
	err := withTx(ctx, m.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return err
		}
		if err := m.ReplaceGenres(ctx, tx, id, film.GenreIDs()); err != nil {
			return err
		}
		return m.ReplaceDirectors(ctx, tx, id, film.DirectorIDs())
	})
	if err != nil {
		return mapWriteError(err)
	}
	film.ID = id
	return nil
}

// Update replaces the scalar fields and the genre and director sets. A
// missing id is not an error; callers check existence first.
func (m FilmModel) Update(ctx context.Context, film *Film) error {
	if film.Rating == nil {
		return errMissingRating
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE films
		SET name = $1, description = $2, release_date = $3, duration = $4, rating_id = $5
		WHERE id = $6`
	args := []any{film.Title, film.Description, film.ReleaseDate, film.Duration, film.Rating.ID, film.ID}

	err := withTx(ctx, m.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return nil
		}
		if err := m.ReplaceGenres(ctx, tx, film.ID, film.GenreIDs()); err != nil {
			return err
		}
		return m.ReplaceDirectors(ctx, tx, film.ID, film.DirectorIDs())
	})
	return mapWriteError(err)
}

// Delete relies on ON DELETE CASCADE to drop genre, director and like rows.
func (m FilmModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM films WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ReplaceGenres and ReplaceDirectors full-replace one association set of
// filmID inside tx. Insert and Update run both in the film row's transaction,
// so an unknown id rolls the whole write back.
func (m FilmModel) ReplaceGenres(ctx context.Context, tx *sql.Tx, filmID int64, genreIDs []int64) error {
	return replaceRelation(ctx, tx, "films_genres", "genre_id", filmID, genreIDs)
}

func (m FilmModel) ReplaceDirectors(ctx context.Context, tx *sql.Tx, filmID int64, directorIDs []int64) error {
	return replaceRelation(ctx, tx, "films_directors", "director_id", filmID, directorIDs)
}

// SaveLikes replaces the stored like set with film.Likes. The film row is
// locked for the duration so concurrent replaces of the same film serialize.
func (m FilmModel) SaveLikes(ctx context.Context, film *Film) error {
	return m.replace(ctx, "films_likes", "user_id", film.ID, film.Likes)
}

func (m FilmModel) replace(ctx context.Context, table, column string, filmID int64, ids []int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := withTx(ctx, m.DB, func(tx *sql.Tx) error {
		var locked int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM films WHERE id = $1 FOR UPDATE`, filmID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRecordNotFound
			}
			return err
		}
		return replaceRelation(ctx, tx, table, column, filmID, ids)
	})
	return mapWriteError(err)
}

// replaceRelation 全量替换：先删除该film的全部关系行，再插入当前集合
func replaceRelation(ctx context.Context, tx dbtx, table, column string, filmID int64, ids []int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE film_id = $1`, filmID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	query := `INSERT INTO ` + table + ` (film_id, ` + column + `)
		SELECT $1::bigint, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`
	_, err = tx.ExecContext(ctx, query, filmID, pq.Array(ids))
	return err
}

func (m FilmModel) LoadLikes(ctx context.Context, film *Film) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, `SELECT user_id FROM films_likes WHERE film_id = $1 ORDER BY user_id`, film.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	likes := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		likes = append(likes, userID)
	}
	if err = rows.Err(); err != nil {
		return err
	}
	film.Likes = likes
	return nil
}

// GetCommon returns films liked by both users. The like sets are not loaded.
func (m FilmModel) GetCommon(ctx context.Context, userID, friendID int64) ([]*Film, error) {
	query := `
		SELECT ` + filmColumns + `
		FROM films_likes fl1
		JOIN films_likes fl2 ON fl1.film_id = fl2.film_id AND fl1.user_id <> fl2.user_id
		JOIN films f ON f.id = fl1.film_id
		JOIN ratings r ON r.id = f.rating_id
		WHERE fl1.user_id = $1 AND fl2.user_id = $2
		ORDER BY f.id`
	return m.list(ctx, query, userID, friendID)
}

func (m FilmModel) GetByDirector(ctx context.Context, directorID int64, sort DirectorSort) ([]*Film, error) {
	var query string
	switch sort {
	case SortByYear:
		query = `
			SELECT ` + filmColumns + ` ` + filmSource + `
			JOIN films_directors fd ON fd.film_id = f.id
			WHERE fd.director_id = $1
			ORDER BY f.release_date, f.id`
	default:
		query = `
			SELECT ` + filmColumns + ` ` + filmSource + `
			JOIN films_directors fd ON fd.film_id = f.id
			LEFT JOIN (
				SELECT film_id, COUNT(DISTINCT user_id) AS likes
				FROM films_likes
				GROUP BY film_id
			) l ON l.film_id = f.id
			WHERE fd.director_id = $1
			ORDER BY COALESCE(l.likes, 0) DESC, f.id`
	}
	return m.list(ctx, query, directorID)
}

const (
	searchByTitle = `
		SELECT ` + filmColumns + ` ` + filmSource + `
		WHERE f.name ILIKE '%' || $1 || '%'`
	searchByDirector = `
		SELECT ` + filmColumns + ` ` + filmSource + `
		JOIN films_directors fd ON fd.film_id = f.id
		JOIN directors d ON d.id = fd.director_id
		WHERE d.name ILIKE '%' || $1 || '%'`
)

// Search matches query as a case-insensitive substring. Combined fields are
// a UNION ALL, so a film matching both predicates is returned twice.
func (m FilmModel) Search(ctx context.Context, query string, by SearchField) ([]*Film, error) {
	var stmt string
	switch by {
	case SearchByTitle:
		stmt = searchByTitle
	case SearchByDirector:
		stmt = searchByDirector
	case SearchByDirectorTitle:
		stmt = searchByDirector + ` UNION ALL ` + searchByTitle
	case SearchByTitleDirector:
		stmt = searchByTitle + ` UNION ALL ` + searchByDirector
	default:
		return nil, fmt.Errorf("unsupported search field %q", by)
	}
	stmt += ` ORDER BY 1 DESC`

	return m.list(ctx, stmt, escapeLike(query))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
