package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrDuplicateEmail   = errors.New("duplicate email")
)

const queryTimeout = 3 * time.Second

// 所有model的统一入口，字段用接口方便测试时替换为mocks
type Models struct {
	Films interface {
		Get(ctx context.Context, id int64) (*Film, error)
		GetAll(ctx context.Context) ([]*Film, error)
		GetAllByYear(ctx context.Context, year int) ([]*Film, error)
		GetAllByGenre(ctx context.Context, genreID int64) ([]*Film, error)
		GetAllByGenreAndYear(ctx context.Context, genreID int64, year int) ([]*Film, error)
		Insert(ctx context.Context, film *Film) error
		Update(ctx context.Context, film *Film) error
		Delete(ctx context.Context, id int64) error
		SaveLikes(ctx context.Context, film *Film) error
		LoadLikes(ctx context.Context, film *Film) error
		GetCommon(ctx context.Context, userID, friendID int64) ([]*Film, error)
		GetByDirector(ctx context.Context, directorID int64, sort DirectorSort) ([]*Film, error)
		Search(ctx context.Context, query string, by SearchField) ([]*Film, error)
	}
	Genres interface {
		Get(ctx context.Context, id int64) (*Genre, error)
		GetAll(ctx context.Context) ([]Genre, error)
		GetByFilm(ctx context.Context, filmID int64) ([]Genre, error)
	}
	Directors interface {
		Get(ctx context.Context, id int64) (*Director, error)
		GetAll(ctx context.Context) ([]Director, error)
		GetByFilm(ctx context.Context, filmID int64) ([]Director, error)
		Insert(ctx context.Context, director *Director) error
		Update(ctx context.Context, director *Director) error
		Delete(ctx context.Context, id int64) error
	}
	Ratings interface {
		Get(ctx context.Context, id int64) (*Rating, error)
		GetAll(ctx context.Context) ([]Rating, error)
	}
	Users interface {
		Get(ctx context.Context, id int64) (*User, error)
		Insert(ctx context.Context, user *User) error
	}
	Events interface {
		Insert(ctx context.Context, event *Event) error
		GetForUser(ctx context.Context, userID int64) ([]Event, error)
	}
}

func NewModels(db *sql.DB) Models {
	return Models{
		Films:     NewFilmModel(db),
		Genres:    NewGenreModel(db),
		Directors: NewDirectorModel(db),
		Ratings:   NewRatingModel(db),
		Users:     NewUserModel(db),
		Events:    NewEventModel(db),
	}
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// 外键约束失败说明请求引用了不存在的genre/director/mpa/user
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pqErr.Detail)
		case "23505":
			if pqErr.Constraint == "users_email_key" {
				return ErrDuplicateEmail
			}
		}
	}
	return err
}
