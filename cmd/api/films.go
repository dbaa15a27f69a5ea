package main

import (
	"fmt"
	"net/http"

	"github.com/embracexyz/filmorate/internal/data"
	"github.com/embracexyz/filmorate/internal/validator"
)

// filmInput is the request body of create and update. Updates are full
// replaces, so both share it.
type filmInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ReleaseDate data.Date       `json:"release_date"`
	Duration    int32           `json:"duration"`
	Rating      *data.Rating    `json:"mpa"`
	Genres      []data.Genre    `json:"genres"`
	Directors   []data.Director `json:"directors"`
}

func (in filmInput) film(id int64) *data.Film {
	return &data.Film{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		ReleaseDate: in.ReleaseDate,
		Duration:    in.Duration,
		Rating:      in.Rating,
		Genres:      in.Genres,
		Directors:   in.Directors,
	}
}

func (app *application) createFilmHandler(w http.ResponseWriter, r *http.Request) {
	var input filmInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	film, err := app.films.CreateFilm(r.Context(), input.film(0))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/films/%d", film.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"film": film}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	film, err := app.films.GetFilm(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listFilmsHandler(w http.ResponseWriter, r *http.Request) {
	films, err := app.films.ListFilms(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input filmInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	film, err := app.films.UpdateFilm(r.Context(), input.film(id))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.films.DeleteFilm(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "film successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) addLikeHandler(w http.ResponseWriter, r *http.Request) {
	app.changeLike(w, r, true)
}

func (app *application) removeLikeHandler(w http.ResponseWriter, r *http.Request) {
	app.changeLike(w, r, false)
}

func (app *application) changeLike(w http.ResponseWriter, r *http.Request, add bool) {
	filmID, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	userID, err := app.readIDParam(r, "userId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if add {
		err = app.films.AddLike(r.Context(), filmID, userID)
	} else {
		err = app.films.RemoveLike(r.Context(), filmID, userID)
	}
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// popularFilmsHandler keeps the public contract of genreId=0 and year=0
// meaning "not filtered".
func (app *application) popularFilmsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	filter := data.PopularFilter{Count: app.readInt(qs, "count", 10, v)}
	if genreID := app.readInt64(qs, "genreId", 0, v); genreID != 0 {
		filter.GenreID = &genreID
	}
	if year := app.readInt(qs, "year", 0, v); year != 0 {
		filter.Year = &year
	}

	if data.ValidatePopularFilter(v, filter); !v.Valid() {
		app.failedValidationResponse(w, r, v.FieldErrors)
		return
	}

	films, err := app.films.PopularFilms(r.Context(), filter)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) commonFilmsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	userID := app.readInt64(qs, "userId", 0, v)
	friendID := app.readInt64(qs, "friendId", 0, v)
	v.Check(userID > 0, "userId", "must be provided")
	v.Check(friendID > 0, "friendId", "must be provided")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.FieldErrors)
		return
	}

	films, err := app.films.CommonFilms(r.Context(), userID, friendID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) directorFilmsHandler(w http.ResponseWriter, r *http.Request) {
	directorID, err := app.readIDParam(r, "directorId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	v := validator.New()
	sort := data.ValidateDirectorSort(v, app.readString(r.URL.Query(), "sortBy", ""))
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.FieldErrors)
		return
	}

	films, err := app.films.FilmsByDirector(r.Context(), directorID, sort)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) searchFilmsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	query := app.readString(qs, "query", "")
	by := data.ValidateSearchField(v, app.readString(qs, "by", ""))
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.FieldErrors)
		return
	}

	films, err := app.films.Search(r.Context(), query, by)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
