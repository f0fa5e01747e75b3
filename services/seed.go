package services

import (
	"log"

	"case_relay_go/models"

	"gorm.io/gorm"
)

const (
	// DefaultAdminPoliceID is the bootstrap administrator account
	DefaultAdminPoliceID = "ADMIN001"
	DefaultAdminEmail    = "admin@caserelay.com"
	// DefaultAdminPasscode is used when ADMIN_SEED_PASSCODE is not set
	DefaultAdminPasscode = "Admin@123"
)

// SeedAdmin creates the bootstrap administrator when no admin exists yet.
// The account must change its passcode at first login.
func SeedAdmin(conn *gorm.DB, passcode string) error {
	var count int64
	if err := conn.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("[SEED] Admin user already exists, skipping seed")
		return nil
	}

	// Check if the bootstrap identity is taken by a non-admin account
	var existing int64
	if err := conn.Model(&models.User{}).
		Where("police_id = ? OR email = ?", DefaultAdminPoliceID, DefaultAdminEmail).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Printf("[SEED] %s already exists without admin role, skipping admin seed", DefaultAdminPoliceID)
		return nil
	}

	if passcode == "" {
		passcode = DefaultAdminPasscode
		log.Println("[WARNING] Seeding admin with the default passcode. Set ADMIN_SEED_PASSCODE.")
	}
	hash, err := HashPassword(passcode)
	if err != nil {
		return err
	}

	admin := &models.User{
		PoliceID:             DefaultAdminPoliceID,
		FirstName:            "System",
		LastName:             "Administrator",
		Email:                DefaultAdminEmail,
		PasscodeHash:         hash,
		Role:                 models.RoleAdmin,
		IsActive:             true,
		IsVerified:           true,
		RequirePasswordReset: true,
	}
	if err := conn.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("[SEED] Created admin user: %s", DefaultAdminPoliceID)
	return nil
}
