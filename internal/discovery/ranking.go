package discovery

import (
	"cmp"
	"slices"

	"github.com/embracexyz/filmorate/internal/data"
)

// rankByPopularity sorts by like count, most liked first. The sort is stable
// and candidates come from the store in ascending id order, so equal counts
// stay in ascending id.
func rankByPopularity(films []*data.Film) {
	slices.SortStableFunc(films, func(a, b *data.Film) int {
		return cmp.Compare(b.LikeCount(), a.LikeCount())
	})
}

// truncate keeps the first n films. n <= 0 yields an empty list.
func truncate(films []*data.Film, n int) []*data.Film {
	if n <= 0 {
		return []*data.Film{}
	}
	return films[:min(n, len(films))]
}
