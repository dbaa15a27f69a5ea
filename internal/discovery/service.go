// Package discovery answers the catalog's read-side questions (popular films,
// films two users share, a director's filmography, search) and owns the
// write rules for films and likes.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/embracexyz/filmorate/internal/data"
	"github.com/embracexyz/filmorate/internal/jsonlog"
	"github.com/embracexyz/filmorate/internal/validator"
)

type EventPublisher interface {
	Publish(ctx context.Context, event data.Event) error
}

type Service struct {
	models data.Models
	loader *Loader
	events EventPublisher
	logger *jsonlog.Logger
	now    func() time.Time
}

func NewService(models data.Models, events EventPublisher, logger *jsonlog.Logger) *Service {
	return &Service{
		models: models,
		loader: NewLoader(models),
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// PopularFilms ranks the candidates selected by filter and returns the top
// filter.Count of them.
func (s *Service) PopularFilms(ctx context.Context, filter data.PopularFilter) ([]*data.Film, error) {
	var (
		films []*data.Film
		err   error
	)
	switch {
	case filter.GenreID != nil && filter.Year != nil:
		films, err = s.models.Films.GetAllByGenreAndYear(ctx, *filter.GenreID, *filter.Year)
	case filter.GenreID != nil:
		films, err = s.models.Films.GetAllByGenre(ctx, *filter.GenreID)
	case filter.Year != nil:
		films, err = s.models.Films.GetAllByYear(ctx, *filter.Year)
	default:
		films, err = s.models.Films.GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loader.LoadAll(ctx, films); err != nil {
		return nil, err
	}
	rankByPopularity(films)
	return truncate(films, filter.Count), nil
}

// CommonFilms returns the films both users like, most popular first. Only
// the like sets are hydrated.
func (s *Service) CommonFilms(ctx context.Context, userID, friendID int64) ([]*data.Film, error) {
	films, err := s.models.Films.GetCommon(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if err := s.loader.LoadLikes(ctx, films); err != nil {
		return nil, err
	}
	rankByPopularity(films)
	return films, nil
}

// FilmsByDirector keeps the store's ordering. A director with no films is
// reported as not found, whether or not the director exists.
func (s *Service) FilmsByDirector(ctx context.Context, directorID int64, sort data.DirectorSort) ([]*data.Film, error) {
	films, err := s.models.Films.GetByDirector(ctx, directorID, sort)
	if err != nil {
		return nil, err
	}
	if len(films) == 0 {
		return nil, data.ErrRecordNotFound
	}
	if err := s.loader.LoadAll(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

func (s *Service) Search(ctx context.Context, query string, by data.SearchField) ([]*data.Film, error) {
	films, err := s.models.Films.Search(ctx, query, by)
	if err != nil {
		return nil, err
	}
	if err := s.loader.LoadAll(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

func (s *Service) AddLike(ctx context.Context, filmID, userID int64) error {
	return s.changeLike(ctx, filmID, userID, data.OperationAdd)
}

func (s *Service) RemoveLike(ctx context.Context, filmID, userID int64) error {
	return s.changeLike(ctx, filmID, userID, data.OperationRemove)
}

// changeLike is load, snapshot, full replace. Two concurrent changes to the
// same film are last-writer-wins.
func (s *Service) changeLike(ctx context.Context, filmID, userID int64, operation string) error {
	film, err := s.GetFilm(ctx, filmID)
	if err != nil {
		return err
	}
	if _, err := s.models.Users.Get(ctx, userID); err != nil {
		return err
	}

	var snapshot *data.Film
	switch operation {
	case data.OperationAdd:
		snapshot = film.WithLike(userID)
	default:
		snapshot = film.WithoutLike(userID)
	}

	if err := s.models.Films.SaveLikes(ctx, snapshot); err != nil {
		return fmt.Errorf("save likes of film %d: %w", filmID, err)
	}

	event := data.NewLikeEvent(userID, filmID, operation, s.now())
	if err := s.events.Publish(ctx, event); err != nil {
		// 点赞已经落库，事件丢失不影响请求结果
		s.logger.PrintWarning("publish like event: "+err.Error(), map[string]string{
			"film_id":   strconv.FormatInt(filmID, 10),
			"user_id":   strconv.FormatInt(userID, 10),
			"operation": operation,
		})
	}
	return nil
}

// GetFilm returns a fully hydrated film.
func (s *Service) GetFilm(ctx context.Context, id int64) (*data.Film, error) {
	film, err := s.models.Films.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loader.Load(ctx, film); err != nil {
		return nil, err
	}
	return film, nil
}

func (s *Service) ListFilms(ctx context.Context) ([]*data.Film, error) {
	films, err := s.models.Films.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loader.LoadAll(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

func validateFilm(film *data.Film) error {
	v := validator.New()
	if data.ValidateFilm(v, film); !v.Valid() {
		return &ValidationError{Errors: v.FieldErrors}
	}
	return nil
}

// CreateFilm validates before touching the store, so a rejected film leaves
// no row behind. The returned film is re-read from the store.
func (s *Service) CreateFilm(ctx context.Context, film *data.Film) (*data.Film, error) {
	if err := validateFilm(film); err != nil {
		return nil, err
	}
	if err := s.models.Films.Insert(ctx, film); err != nil {
		return nil, err
	}
	return s.GetFilm(ctx, film.ID)
}

func (s *Service) UpdateFilm(ctx context.Context, film *data.Film) (*data.Film, error) {
	if err := validateFilm(film); err != nil {
		return nil, err
	}
	if _, err := s.models.Films.Get(ctx, film.ID); err != nil {
		return nil, err
	}
	if err := s.models.Films.Update(ctx, film); err != nil {
		return nil, err
	}

	stored, err := s.GetFilm(ctx, film.ID)
	if errors.Is(err, data.ErrRecordNotFound) {
		// deleted between the existence check and the re-read
		return nil, fmt.Errorf("film %d vanished during update: %w", film.ID, err)
	}
	return stored, err
}

func (s *Service) DeleteFilm(ctx context.Context, id int64) error {
	return s.models.Films.Delete(ctx, id)
}
