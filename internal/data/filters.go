package data

import (
	"strings"

	"github.com/embracexyz/filmorate/internal/validator"
)

// DirectorSort orders a director's filmography.
type DirectorSort string

const (
	SortByLikes DirectorSort = "likes"
	SortByYear  DirectorSort = "year"
)

var DirectorSortSafelist = []string{string(SortByLikes), string(SortByYear)}

// ParseDirectorSort maps an empty value to SortByLikes.
func ParseDirectorSort(s string) (DirectorSort, bool) {
	if s == "" {
		return SortByLikes, true
	}
	if !validator.In(s, DirectorSortSafelist...) {
		return "", false
	}
	return DirectorSort(s), true
}

// SearchField selects which film attributes a search query is matched
// against. Combined values keep their order: the first field's matches are
// listed before the second's.
type SearchField string

const (
	SearchByTitle         SearchField = "title"
	SearchByDirector      SearchField = "director"
	SearchByDirectorTitle SearchField = "director,title"
	SearchByTitleDirector SearchField = "title,director"
)

var SearchFieldSafelist = []string{
	string(SearchByTitle),
	string(SearchByDirector),
	string(SearchByDirectorTitle),
	string(SearchByTitleDirector),
}

// ParseSearchField maps an empty value to SearchByTitle and rejects anything
// outside the safelist.
func ParseSearchField(s string) (SearchField, bool) {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	if s == "" {
		return SearchByTitle, true
	}
	if !validator.In(s, SearchFieldSafelist...) {
		return "", false
	}
	return SearchField(s), true
}

// PopularFilter narrows the popularity ranking. A nil GenreID or Year means
// that dimension is not filtered. Count has no upper bound; a year no film
// was released in just matches nothing.
type PopularFilter struct {
	Count   int
	GenreID *int64
	Year    *int
}

func ValidatePopularFilter(v *validator.Validator, f PopularFilter) {
	v.Check(f.Count > 0, "count", "must be greater than zero")
	if f.GenreID != nil {
		v.Check(*f.GenreID > 0, "genreId", "must be a positive integer")
	}
}

func ValidateSearchField(v *validator.Validator, by string) SearchField {
	field, ok := ParseSearchField(by)
	v.Check(ok, "by", "must be one of "+strings.Join(SearchFieldSafelist, ", "))
	return field
}

func ValidateDirectorSort(v *validator.Validator, sortBy string) DirectorSort {
	sort, ok := ParseDirectorSort(sortBy)
	v.Check(ok, "sortBy", "must be one of "+strings.Join(DirectorSortSafelist, ", "))
	return sort
}
