package services

import (
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
)

// UserService handles user-related business logic
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users with paging, newest first
func (s *UserService) ListUsers(limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeactivateUser soft-deactivates an account. Users are never hard-deleted.
func (s *UserService) DeactivateUser(userID uint) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}
