package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embracexyz/filmorate/internal/data"
)

func TestStopFeedKeepsPublishedEvents(t *testing.T) {
	app, store := newTestApplication(t, config{})
	ctx := context.Background()

	film := &data.Film{Title: "Ran", ReleaseDate: data.NewDate(1985, time.June, 1), Duration: 162, Rating: &data.Rating{ID: 4}}
	require.NoError(t, app.models.Films.Insert(ctx, film))
	user := &data.User{Email: "kurosawa@example.com", Login: "kurosawa", Birthday: data.NewDate(1910, time.March, 23)}
	require.NoError(t, app.models.Users.Insert(ctx, user))

	for i := range 50 {
		if i%2 == 0 {
			require.NoError(t, app.films.AddLike(ctx, film.ID, user.ID))
		} else {
			require.NoError(t, app.films.RemoveLike(ctx, film.ID, user.ID))
		}
	}

	app.stopFeed()
	app.wg.Wait()

	events := store.Events()
	require.Len(t, events, 50)
	assert.Equal(t, data.OperationAdd, events[0].Operation)
	assert.Equal(t, data.OperationRemove, events[49].Operation)
}
