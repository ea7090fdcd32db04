package qerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeQuery, "scan failed")

	assert.Equal(t, "query: scan failed", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrorTypeConnection, "failed to open source")

	assert.Equal(t, "connection: failed to open source: connection reset", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeQuery, "ignored"))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeSchemaMismatch, "column sets differ")

	assert.True(t, IsType(err, ErrorTypeSchemaMismatch))
	assert.False(t, IsType(err, ErrorTypeQuery))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeQuery))
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeQuery, "scan failed")
	outer := fmt.Errorf("shard 3: %w", inner)

	assert.True(t, IsType(outer, ErrorTypeQuery))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeSchemaMismatch, "column sets differ").
		WithDetail("have", []string{"id"}).
		WithDetail("got", []string{"id", "year"})

	require.NotNil(t, err.Details)
	assert.Equal(t, []string{"id"}, err.Details["have"])
}
