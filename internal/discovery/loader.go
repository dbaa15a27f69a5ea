package discovery

import (
	"context"
	"fmt"

	"github.com/embracexyz/filmorate/internal/data"
)

// Loader hydrates films after a core fetch. The store's list queries return
// scalar fields and the rating only; anything shown to a caller goes through
// here first.
type Loader struct {
	models data.Models
}

func NewLoader(models data.Models) *Loader {
	return &Loader{models: models}
}

// Load overwrites the genre, director and like sets of film in place.
func (l *Loader) Load(ctx context.Context, film *data.Film) error {
	genres, err := l.models.Genres.GetByFilm(ctx, film.ID)
	if err != nil {
		return fmt.Errorf("load genres of film %d: %w", film.ID, err)
	}
	directors, err := l.models.Directors.GetByFilm(ctx, film.ID)
	if err != nil {
		return fmt.Errorf("load directors of film %d: %w", film.ID, err)
	}
	if err := l.models.Films.LoadLikes(ctx, film); err != nil {
		return fmt.Errorf("load likes of film %d: %w", film.ID, err)
	}

	film.Genres = genres
	film.Directors = directors
	return nil
}

func (l *Loader) LoadAll(ctx context.Context, films []*data.Film) error {
	for _, film := range films {
		if err := l.Load(ctx, film); err != nil {
			return err
		}
	}
	return nil
}

// LoadLikes only fills the like sets, which is all ranking needs.
func (l *Loader) LoadLikes(ctx context.Context, films []*data.Film) error {
	for _, film := range films {
		if err := l.models.Films.LoadLikes(ctx, film); err != nil {
			return fmt.Errorf("load likes of film %d: %w", film.ID, err)
		}
	}
	return nil
}
