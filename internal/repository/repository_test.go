package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Listing{}, &models.Offer{}, &models.Message{}, &models.SavedListing{}))
	return db
}

func createTestListing(t *testing.T, db *gorm.DB, sellerID string) models.Listing {
	t.Helper()
	listing := models.Listing{
		Title:       "Dorm desk lamp",
		Description: "Barely used, warm white bulb included.",
		Price:       15,
		CategoryID:  3,
		ZoneID:      1,
		SellerID:    sellerID,
		SellerName:  "Sam Seller",
		Status:      models.ListingStatusActive,
	}
	require.NoError(t, db.Create(&listing).Error)
	return listing
}
