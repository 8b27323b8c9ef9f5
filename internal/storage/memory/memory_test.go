package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"
)

func TestStorage_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	_, err := s.GetItem(ctx, "unidigital.cart.v1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	value := []byte(`{"items":[],"currency":"GBP"}`)
	require.NoError(t, s.SetItem(ctx, "unidigital.cart.v1", value))

	got, err := s.GetItem(ctx, "unidigital.cart.v1")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	value[0] = 'X'
	got[1] = 'Y'
	again, err := s.GetItem(ctx, "unidigital.cart.v1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[],"currency":"GBP"}`, string(again), "storage must not alias caller slices")

	require.NoError(t, s.RemoveItem(ctx, "unidigital.cart.v1"))
	require.NoError(t, s.RemoveItem(ctx, "unidigital.cart.v1"))
	_, err = s.GetItem(ctx, "unidigital.cart.v1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProvider_IsolatesSessions(t *testing.T) {
	ctx := context.Background()
	p := NewProvider()

	require.NoError(t, p.ForSession("a").SetItem(ctx, "k", []byte("1")))

	_, err := p.ForSession("b").GetItem(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := p.ForSession("a").GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
	assert.Same(t, p.ForSession("a"), p.ForSession("a"))
}
