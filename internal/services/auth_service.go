package services

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
	"investment-platform/internal/utils"
)

// AuthService handles registration and login
type AuthService struct {
	db       *gorm.DB
	referral *ReferralService
}

func NewAuthService(db *gorm.DB, referral *ReferralService) *AuthService {
	return &AuthService{db: db, referral: referral}
}

// Register creates a new account, optionally linked to a referrer's code
func (s *AuthService) Register(name, email, password, referralCode string) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperrors.Validation("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := utils.GenerateReferralCode()
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		Password:     string(hash),
		ReferralCode: code,
		IsActive:     true,
	}

	// Link the upline before the first save so the referral forest is
	// complete from the moment the account exists
	if referralCode != "" {
		var referrer models.User
		if err := s.db.Where("referral_code = ?", referralCode).First(&referrer).Error; err == nil {
			user.ReferredByID = &referrer.ID
		} else {
			log.Printf("[Auth] Ignoring unknown referral code %q at registration", referralCode)
		}
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[Auth] New user registered: %s (ID: %d)", email, user.ID)
	return &user, nil
}

// Login verifies credentials and returns the account
func (s *AuthService) Login(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.Validation("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.Validation("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Validation("invalid email or password")
	}

	log.Printf("[Auth] User logged in: %s (ID: %d)", email, user.ID)
	return &user, nil
}
