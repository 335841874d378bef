package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundFamily(t *testing.T) {
	assert.ErrorIs(t, ErrStationNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrUnknownField, ErrNotFound)

	var err error = &CategoryNotFoundError{Category: CategoryTemperature}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "station does not provide temperature measurements", err.Error())
}

func TestFetchError(t *testing.T) {
	withStatus := &FetchError{Feed: "bafu_url_2", StatusCode: 401, Body: "unauthorized"}
	assert.Equal(t, "fetch feed bafu_url_2: status 401: unauthorized", withStatus.Error())

	timeout := &FetchError{Feed: "bafu_url_6", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Contains(t, timeout.Error(), "bafu_url_6")
}

func TestParseError(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, "parse station 2023: boom", (&ParseError{StationID: "2023", Err: cause}).Error())
	assert.Equal(t, "parse feed bafu_url_2: boom", (&ParseError{Feed: "bafu_url_2", Err: cause}).Error())
	assert.ErrorIs(t, &ParseError{Err: cause}, cause)
}
