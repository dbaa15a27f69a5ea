package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/embracexyz/filmorate/internal/validator"
)

// User is the slice of the user subsystem the catalog needs: identity for
// likes and feeds. Friendships live elsewhere.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Name     string `json:"name"`
	Birthday Date   `json:"birthday"`
}

type UserModel struct {
	DB *sql.DB
}

func NewUserModel(db *sql.DB) UserModel {
	return UserModel{DB: db}
}

func (m UserModel) Get(ctx context.Context, id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `SELECT id, email, login, name, birthday FROM users WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user User
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Login, &user.Name, &user.Birthday)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}

func (m UserModel) Insert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, login, name, birthday)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, user.Email, user.Login, user.Name, user.Birthday).Scan(&user.ID)
	return mapWriteError(err)
}

func ValidateEmail(v *validator.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

func ValidateUser(v *validator.Validator, user *User) {
	ValidateEmail(v, user.Email)

	v.Check(validator.NotBlank(user.Login), "login", "must be provided")
	v.Check(!strings.ContainsAny(user.Login, " \t\n"), "login", "must not contain whitespace")
	v.Check(len(user.Name) <= 500, "name", "must not be more than 500 bytes long")

	v.Check(!user.Birthday.IsZero(), "birthday", "must be provided")
	v.Check(!user.Birthday.After(time.Now()), "birthday", "must not be in the future")
}
