package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSavedServiceSaveIsIdempotent(t *testing.T) {
	listings := &stubListingRepo{listing: testListing("seller")}
	saved := newStubSavedRepo()
	svc := NewSavedService(saved, listings, zerolog.Nop())

	_, err := svc.Save(context.Background(), "buyer-1", 7)
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), "buyer-1", 7)
	require.NoError(t, err)

	// The saves counter only moves on the first save.
	require.Equal(t, []string{"saves"}, listings.increments)

	items, err := svc.List(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestSavedServiceRemoveOnlyDecrementsWhenPresent(t *testing.T) {
	listings := &stubListingRepo{listing: testListing("seller")}
	saved := newStubSavedRepo()
	svc := NewSavedService(saved, listings, zerolog.Nop())

	// Removing something never saved touches nothing.
	require.NoError(t, svc.Remove(context.Background(), "buyer-1", 7))

	_, err := svc.Save(context.Background(), "buyer-1", 7)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), "buyer-1", 7))

	items, err := svc.List(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestSavedServiceUnknownListing(t *testing.T) {
	listings := &stubListingRepo{missing: true}
	svc := NewSavedService(newStubSavedRepo(), listings, zerolog.Nop())

	_, err := svc.Save(context.Background(), "buyer-1", 99)
	require.ErrorIs(t, err, ErrListingNotFound)
	require.ErrorIs(t, svc.Remove(context.Background(), "buyer-1", 99), ErrListingNotFound)
}
