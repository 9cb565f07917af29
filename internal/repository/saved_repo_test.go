package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSavedRepositorySaveAndRemove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSavedRepository(db)
	listing := createTestListing(t, db, "seller-1")

	require.NoError(t, repo.Save(context.Background(), "buyer-1", listing.ID))

	exists, err := repo.Exists(context.Background(), "buyer-1", listing.ID)
	require.NoError(t, err)
	require.True(t, exists)

	saved, err := repo.ListByUser(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, listing.ID, saved[0].ListingID)

	removed, err := repo.Remove(context.Background(), "buyer-1", listing.ID)
	require.NoError(t, err)
	require.True(t, removed)

	// Removing again is a no-op and reports that nothing changed.
	removed, err = repo.Remove(context.Background(), "buyer-1", listing.ID)
	require.NoError(t, err)
	require.False(t, removed)
}
