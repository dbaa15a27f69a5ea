package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/embracexyz/filmorate/internal/validator"
)

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Director struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Rating is the MPA classification of a film.
type Rating struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func ValidateDirector(v *validator.Validator, director *Director) {
	v.Check(validator.NotBlank(director.Name), "name", "must be provided")
	v.Check(len(director.Name) <= 255, "name", "must not be more than 255 bytes long")
}

// genre、director、mpa都是(id, name)结构，共用查询逻辑
func getNamed(ctx context.Context, db *sql.DB, query string, id int64) (int64, string, error) {
	if id < 1 {
		return 0, "", ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var name string
	err := db.QueryRowContext(ctx, query, id).Scan(&id, &name)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, "", ErrRecordNotFound
		default:
			return 0, "", err
		}
	}
	return id, name, nil
}

func listNamed[T any](ctx context.Context, db *sql.DB, build func(id int64, name string) T, query string, args ...any) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		items = append(items, build(id, name))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func newGenre(id int64, name string) Genre       { return Genre{ID: id, Name: name} }
func newDirector(id int64, name string) Director { return Director{ID: id, Name: name} }
func newRating(id int64, name string) Rating     { return Rating{ID: id, Name: name} }

type GenreModel struct {
	DB *sql.DB
}

func NewGenreModel(db *sql.DB) GenreModel {
	return GenreModel{DB: db}
}

func (m GenreModel) Get(ctx context.Context, id int64) (*Genre, error) {
	id, name, err := getNamed(ctx, m.DB, `SELECT id, name FROM genres WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &Genre{ID: id, Name: name}, nil
}

func (m GenreModel) GetAll(ctx context.Context) ([]Genre, error) {
	return listNamed(ctx, m.DB, newGenre, `SELECT id, name FROM genres ORDER BY id`)
}

func (m GenreModel) GetByFilm(ctx context.Context, filmID int64) ([]Genre, error) {
	query := `
		SELECT g.id, g.name
		FROM genres g
		JOIN films_genres fg ON fg.genre_id = g.id
		WHERE fg.film_id = $1
		ORDER BY g.id`
	return listNamed(ctx, m.DB, newGenre, query, filmID)
}

type RatingModel struct {
	DB *sql.DB
}

func NewRatingModel(db *sql.DB) RatingModel {
	return RatingModel{DB: db}
}

func (m RatingModel) Get(ctx context.Context, id int64) (*Rating, error) {
	id, name, err := getNamed(ctx, m.DB, `SELECT id, name FROM ratings WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &Rating{ID: id, Name: name}, nil
}

func (m RatingModel) GetAll(ctx context.Context) ([]Rating, error) {
	return listNamed(ctx, m.DB, newRating, `SELECT id, name FROM ratings ORDER BY id`)
}

type DirectorModel struct {
	DB *sql.DB
}

func NewDirectorModel(db *sql.DB) DirectorModel {
	return DirectorModel{DB: db}
}

func (m DirectorModel) Get(ctx context.Context, id int64) (*Director, error) {
	id, name, err := getNamed(ctx, m.DB, `SELECT id, name FROM directors WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &Director{ID: id, Name: name}, nil
}

func (m DirectorModel) GetAll(ctx context.Context) ([]Director, error) {
	return listNamed(ctx, m.DB, newDirector, `SELECT id, name FROM directors ORDER BY id`)
}

func (m DirectorModel) GetByFilm(ctx context.Context, filmID int64) ([]Director, error) {
	query := `
		SELECT d.id, d.name
		FROM directors d
		JOIN films_directors fd ON fd.director_id = d.id
		WHERE fd.film_id = $1
		ORDER BY d.id`
	return listNamed(ctx, m.DB, newDirector, query, filmID)
}

func (m DirectorModel) Insert(ctx context.Context, director *Director) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, `INSERT INTO directors (name) VALUES ($1) RETURNING id`, director.Name).Scan(&director.ID)
}

func (m DirectorModel) Update(ctx context.Context, director *Director) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `UPDATE directors SET name = $1 WHERE id = $2`, director.Name, director.ID)
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

// Delete also removes the director from every film through ON DELETE CASCADE.
func (m DirectorModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM directors WHERE id = $1`, id)
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
