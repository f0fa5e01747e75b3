package services

import (
	"context"
	"errors"
	"fmt"

	"case_relay_go/models"

	"gorm.io/gorm"
)

// OfficerDirectory resolves officers for assignment checks. A missing
// officer is reported as (nil, nil).
type OfficerDirectory interface {
	FindByPoliceID(ctx context.Context, policeID string) (*models.User, error)
	FindByUserID(ctx context.Context, userID uint) (*models.User, error)
	Exists(ctx context.Context, policeID string) (bool, error)
}

// scopedDirectory is implemented by directories that can run on an open transaction
type scopedDirectory interface {
	Using(tx *gorm.DB) OfficerDirectory
}

// GormOfficerDirectory reads officers from the users table
type GormOfficerDirectory struct {
	DB *gorm.DB
}

func NewOfficerDirectory(db *gorm.DB) *GormOfficerDirectory {
	return &GormOfficerDirectory{DB: db}
}

// Using returns a directory bound to tx
func (d *GormOfficerDirectory) Using(tx *gorm.DB) OfficerDirectory {
	return &GormOfficerDirectory{DB: tx}
}

func (d *GormOfficerDirectory) FindByPoliceID(ctx context.Context, policeID string) (*models.User, error) {
	if policeID == "" {
		return nil, nil
	}
	var user models.User
	err := d.DB.WithContext(ctx).Where("police_id = ?", policeID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up officer %s: %w", policeID, err)
	}
	return &user, nil
}

func (d *GormOfficerDirectory) FindByUserID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := d.DB.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}
	return &user, nil
}

func (d *GormOfficerDirectory) Exists(ctx context.Context, policeID string) (bool, error) {
	var count int64
	if err := d.DB.WithContext(ctx).Model(&models.User{}).Where("police_id = ?", policeID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check officer %s: %w", policeID, err)
	}
	return count > 0, nil
}

func directoryFor(dir OfficerDirectory, tx *gorm.DB) OfficerDirectory {
	if scoped, ok := dir.(scopedDirectory); ok {
		return scoped.Using(tx)
	}
	return dir
}
