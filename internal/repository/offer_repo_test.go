package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusmarket/campus-market-api/internal/models"
)

func TestOfferRepositoryListPreservesInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOfferRepository(db)
	listing := createTestListing(t, db, "seller-1")

	first := models.Offer{ListingID: listing.ID, ByID: "buyer-1", ByName: "Bea", Price: 80, Status: models.OfferStatusPending}
	second := models.Offer{ListingID: listing.ID, ByID: "buyer-2", ByName: "Ben", Price: 90, Status: models.OfferStatusPending}
	require.NoError(t, repo.Create(context.Background(), &first))
	require.NoError(t, repo.Create(context.Background(), &second))

	// A status flip must not reorder the list.
	require.NoError(t, repo.UpdateStatus(context.Background(), listing.ID, first.ID, models.OfferStatusDeclined))

	offers, err := repo.ListByListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	require.Equal(t, "buyer-1", offers[0].ByID)
	require.Equal(t, models.OfferStatusDeclined, offers[0].Status)
	require.Equal(t, "buyer-2", offers[1].ByID)
}

func TestOfferRepositoryGetScopesByListing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOfferRepository(db)
	mine := createTestListing(t, db, "seller-1")
	other := createTestListing(t, db, "seller-2")

	offer := models.Offer{ListingID: mine.ID, ByID: "buyer-1", Price: 40, Status: models.OfferStatusPending}
	require.NoError(t, repo.Create(context.Background(), &offer))

	found, err := repo.Get(context.Background(), mine.ID, offer.ID)
	require.NoError(t, err)
	require.Equal(t, offer.ID, found.ID)

	_, err = repo.Get(context.Background(), other.ID, offer.ID)
	require.Error(t, err)
}
