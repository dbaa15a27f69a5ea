package data

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var in struct {
		ReleaseDate Date `json:"release_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"release_date":"1994-01-01"}`), &in))
	assert.Equal(t, NewDate(1994, time.January, 1), in.ReleaseDate)

	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"release_date":"1994-01-01"}`, string(out))
}

func TestDateRejectsBadFormat(t *testing.T) {
	var d Date
	assert.ErrorIs(t, d.UnmarshalJSON([]byte(`"01/01/1994"`)), ErrInvalidDateFormat)
	assert.ErrorIs(t, d.UnmarshalJSON([]byte(`19940101`)), ErrInvalidDateFormat)
}

func TestDateScanDropsTimeOfDay(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(1895, time.December, 28, 13, 4, 0, 0, time.FixedZone("X", 3600))))
	assert.Equal(t, "1895-12-28", d.String())

	assert.Error(t, d.Scan("1895-12-28"))
}

func TestDateNullStaysZero(t *testing.T) {
	var in struct {
		ReleaseDate Date `json:"release_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"release_date":null}`), &in))
	assert.True(t, in.ReleaseDate.IsZero())
}
