// Package mocks provides in-memory implementations of the data models. They
// follow the Postgres models' ordering and error contracts closely enough for
// service and handler tests.
package mocks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/embracexyz/filmorate/internal/data"
)

type Store struct {
	mu sync.Mutex

	nextID map[string]int64

	films     map[int64]data.Film
	genres    map[int64]string
	ratings   map[int64]string
	directors map[int64]string
	users     map[int64]data.User
	events    []data.Event

	filmGenres    map[int64][]int64
	filmDirectors map[int64][]int64
	filmLikes     map[int64]map[int64]bool

	// SaveLikesCalls counts full-replace writes of like sets.
	SaveLikesCalls int
}

func NewStore() *Store {
	s := &Store{
		nextID:        make(map[string]int64),
		films:         make(map[int64]data.Film),
		genres:        make(map[int64]string),
		ratings:       make(map[int64]string),
		directors:     make(map[int64]string),
		users:         make(map[int64]data.User),
		filmGenres:    make(map[int64][]int64),
		filmDirectors: make(map[int64][]int64),
		filmLikes:     make(map[int64]map[int64]bool),
	}
	for _, name := range []string{"G", "PG", "PG-13", "R", "NC-17"} {
		s.ratings[s.id("ratings")] = name
	}
	for _, name := range []string{"Comedy", "Drama", "Animation", "Thriller", "Documentary", "Action"} {
		s.genres[s.id("genres")] = name
	}
	return s
}

// NewModels returns models backed by a fresh Store.
func NewModels() (data.Models, *Store) {
	s := NewStore()
	return s.Models(), s
}

func (s *Store) Models() data.Models {
	return data.Models{
		Films:     FilmModel{s},
		Genres:    GenreModel{s},
		Directors: DirectorModel{s},
		Ratings:   RatingModel{s},
		Users:     UserModel{s},
		Events:    EventModel{s},
	}
}

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *Store) FilmCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.films)
}

func (s *Store) Events() []data.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// LikeRows returns the stored like relation rows for a film, sorted.
func (s *Store) LikeRows(filmID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likesOf(filmID)
}

func (s *Store) likesOf(filmID int64) []int64 {
	ids := make([]int64, 0, len(s.filmLikes[filmID]))
	for id := range s.filmLikes[filmID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// row rebuilds what the films+ratings join would return.
func (s *Store) row(id int64) *data.Film {
	f := s.films[id]
	f.Rating = &data.Rating{ID: f.Rating.ID, Name: s.ratings[f.Rating.ID]}
	f.Genres = nil
	f.Directors = nil
	f.Likes = nil
	return &f
}

func (s *Store) rows(match func(f data.Film) bool) []*data.Film {
	ids := make([]int64, 0, len(s.films))
	for id, f := range s.films {
		if match(f) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	films := []*data.Film{}
	for _, id := range ids {
		films = append(films, s.row(id))
	}
	return films
}

func (s *Store) checkRefs(film *data.Film) error {
	if _, ok := s.ratings[film.Rating.ID]; !ok {
		return fmt.Errorf("%w: rating %d", data.ErrInvalidReference, film.Rating.ID)
	}
	for _, id := range film.GenreIDs() {
		if _, ok := s.genres[id]; !ok {
			return fmt.Errorf("%w: genre %d", data.ErrInvalidReference, id)
		}
	}
	for _, id := range film.DirectorIDs() {
		if _, ok := s.directors[id]; !ok {
			return fmt.Errorf("%w: director %d", data.ErrInvalidReference, id)
		}
	}
	return nil
}

func scalar(film *data.Film) data.Film {
	return data.Film{
		ID:          film.ID,
		Title:       film.Title,
		Description: film.Description,
		ReleaseDate: film.ReleaseDate,
		Duration:    film.Duration,
		Rating:      &data.Rating{ID: film.Rating.ID},
	}
}

type FilmModel struct{ s *Store }

func (m FilmModel) Get(_ context.Context, id int64) (*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.films[id]; !ok {
		return nil, data.ErrRecordNotFound
	}
	return m.s.row(id), nil
}

func (m FilmModel) GetAll(_ context.Context) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.rows(func(data.Film) bool { return true }), nil
}

func (m FilmModel) GetAllByYear(_ context.Context, year int) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.rows(func(f data.Film) bool { return f.ReleaseDate.Year() == year }), nil
}

func (m FilmModel) GetAllByGenre(_ context.Context, genreID int64) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.rows(func(f data.Film) bool { return slices.Contains(m.s.filmGenres[f.ID], genreID) }), nil
}

func (m FilmModel) GetAllByGenreAndYear(_ context.Context, genreID int64, year int) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.rows(func(f data.Film) bool {
		return f.ReleaseDate.Year() == year && slices.Contains(m.s.filmGenres[f.ID], genreID)
	}), nil
}

func (m FilmModel) Insert(_ context.Context, film *data.Film) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if film.Rating == nil {
		return fmt.Errorf("film has no rating")
	}
	if err := m.s.checkRefs(film); err != nil {
		return err
	}
	film.ID = m.s.id("films")
	m.s.films[film.ID] = scalar(film)
	m.s.filmGenres[film.ID] = film.GenreIDs()
	m.s.filmDirectors[film.ID] = film.DirectorIDs()
	return nil
}

func (m FilmModel) Update(_ context.Context, film *data.Film) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if film.Rating == nil {
		return fmt.Errorf("film has no rating")
	}
	if _, ok := m.s.films[film.ID]; !ok {
		return nil
	}
	if err := m.s.checkRefs(film); err != nil {
		return err
	}
	m.s.films[film.ID] = scalar(film)
	m.s.filmGenres[film.ID] = film.GenreIDs()
	m.s.filmDirectors[film.ID] = film.DirectorIDs()
	return nil
}

func (m FilmModel) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.films[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.films, id)
	delete(m.s.filmGenres, id)
	delete(m.s.filmDirectors, id)
	delete(m.s.filmLikes, id)
	return nil
}

func (m FilmModel) SaveLikes(_ context.Context, film *data.Film) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.films[film.ID]; !ok {
		return data.ErrRecordNotFound
	}
	m.s.SaveLikesCalls++
	likes := make(map[int64]bool, len(film.Likes))
	for _, userID := range film.Likes {
		if _, ok := m.s.users[userID]; !ok {
			return fmt.Errorf("%w: user %d", data.ErrInvalidReference, userID)
		}
		likes[userID] = true
	}
	m.s.filmLikes[film.ID] = likes
	return nil
}

func (m FilmModel) LoadLikes(_ context.Context, film *data.Film) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	film.Likes = m.s.likesOf(film.ID)
	return nil
}

func (m FilmModel) GetCommon(_ context.Context, userID, friendID int64) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.rows(func(f data.Film) bool {
		likes := m.s.filmLikes[f.ID]
		return userID != friendID && likes[userID] && likes[friendID]
	}), nil
}

func (m FilmModel) GetByDirector(_ context.Context, directorID int64, sort data.DirectorSort) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	films := m.s.rows(func(f data.Film) bool { return slices.Contains(m.s.filmDirectors[f.ID], directorID) })

	switch sort {
	case data.SortByYear:
		slices.SortStableFunc(films, func(a, b *data.Film) int {
			return a.ReleaseDate.Compare(b.ReleaseDate.Time)
		})
	default:
		slices.SortStableFunc(films, func(a, b *data.Film) int {
			return cmp.Compare(len(m.s.filmLikes[b.ID]), len(m.s.filmLikes[a.ID]))
		})
	}
	return films, nil
}

func (m FilmModel) Search(_ context.Context, query string, by data.SearchField) ([]*data.Film, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	q := strings.ToLower(query)
	byTitle := func() []*data.Film {
		return m.s.rows(func(f data.Film) bool { return strings.Contains(strings.ToLower(f.Title), q) })
	}
	// one row per matching director, like the SQL join
	byDirector := func() []*data.Film {
		films := []*data.Film{}
		for _, f := range m.s.rows(func(data.Film) bool { return true }) {
			for _, d := range m.s.filmDirectors[f.ID] {
				if strings.Contains(strings.ToLower(m.s.directors[d]), q) {
					films = append(films, m.s.row(f.ID))
				}
			}
		}
		return films
	}

	var films []*data.Film
	switch by {
	case data.SearchByTitle:
		films = byTitle()
	case data.SearchByDirector:
		films = byDirector()
	case data.SearchByDirectorTitle:
		films = append(byDirector(), byTitle()...)
	case data.SearchByTitleDirector:
		films = append(byTitle(), byDirector()...)
	default:
		return nil, fmt.Errorf("unsupported search field %q", by)
	}
	slices.SortStableFunc(films, func(a, b *data.Film) int { return cmp.Compare(b.ID, a.ID) })
	return films, nil
}

type GenreModel struct{ s *Store }

func (m GenreModel) Get(_ context.Context, id int64) (*data.Genre, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	name, ok := m.s.genres[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &data.Genre{ID: id, Name: name}, nil
}

func (m GenreModel) GetAll(_ context.Context) ([]data.Genre, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	genres := []data.Genre{}
	for _, id := range sortedKeys(m.s.genres) {
		genres = append(genres, data.Genre{ID: id, Name: m.s.genres[id]})
	}
	return genres, nil
}

func (m GenreModel) GetByFilm(_ context.Context, filmID int64) ([]data.Genre, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ids := slices.Sorted(slices.Values(m.s.filmGenres[filmID]))
	genres := []data.Genre{}
	for _, id := range ids {
		genres = append(genres, data.Genre{ID: id, Name: m.s.genres[id]})
	}
	return genres, nil
}

type RatingModel struct{ s *Store }

func (m RatingModel) Get(_ context.Context, id int64) (*data.Rating, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	name, ok := m.s.ratings[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &data.Rating{ID: id, Name: name}, nil
}

func (m RatingModel) GetAll(_ context.Context) ([]data.Rating, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ratings := []data.Rating{}
	for _, id := range sortedKeys(m.s.ratings) {
		ratings = append(ratings, data.Rating{ID: id, Name: m.s.ratings[id]})
	}
	return ratings, nil
}

type DirectorModel struct{ s *Store }

func (m DirectorModel) Get(_ context.Context, id int64) (*data.Director, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	name, ok := m.s.directors[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &data.Director{ID: id, Name: name}, nil
}

func (m DirectorModel) GetAll(_ context.Context) ([]data.Director, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	directors := []data.Director{}
	for _, id := range sortedKeys(m.s.directors) {
		directors = append(directors, data.Director{ID: id, Name: m.s.directors[id]})
	}
	return directors, nil
}

func (m DirectorModel) GetByFilm(_ context.Context, filmID int64) ([]data.Director, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ids := slices.Sorted(slices.Values(m.s.filmDirectors[filmID]))
	directors := []data.Director{}
	for _, id := range ids {
		directors = append(directors, data.Director{ID: id, Name: m.s.directors[id]})
	}
	return directors, nil
}

func (m DirectorModel) Insert(_ context.Context, director *data.Director) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	director.ID = m.s.id("directors")
	m.s.directors[director.ID] = director.Name
	return nil
}

func (m DirectorModel) Update(_ context.Context, director *data.Director) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.directors[director.ID]; !ok {
		return data.ErrRecordNotFound
	}
	m.s.directors[director.ID] = director.Name
	return nil
}

func (m DirectorModel) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.directors[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.directors, id)
	for filmID, ids := range m.s.filmDirectors {
		m.s.filmDirectors[filmID] = slices.DeleteFunc(ids, func(d int64) bool { return d == id })
	}
	return nil
}

type UserModel struct{ s *Store }

func (m UserModel) Get(_ context.Context, id int64) (*data.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	user, ok := m.s.users[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &user, nil
}

func (m UserModel) Insert(_ context.Context, user *data.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return data.ErrDuplicateEmail
		}
	}
	user.ID = m.s.id("users")
	m.s.users[user.ID] = *user
	return nil
}

type EventModel struct{ s *Store }

func (m EventModel) Insert(_ context.Context, event *data.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[event.UserID]; !ok {
		return fmt.Errorf("%w: user %d", data.ErrInvalidReference, event.UserID)
	}
	event.ID = m.s.id("events")
	m.s.events = append(m.s.events, *event)
	return nil
}

func (m EventModel) GetForUser(_ context.Context, userID int64) ([]data.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	events := []data.Event{}
	for _, e := range m.s.events {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	return events, nil
}

func sortedKeys(m map[int64]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
