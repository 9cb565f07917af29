package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// AccountRepository reads identity records owned by the auth service. The
// marketplace never writes this table.
type AccountRepository interface {
	Get(ctx context.Context, id string) (models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository constructs an account repository backed by GORM.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}
