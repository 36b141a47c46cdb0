package models

import (
	"time"

	"chat-assistant/backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	Email     string                      `gorm:"size:180;uniqueIndex;not null" json:"email"`
	Password  string                      `json:"-"` // Never return password in JSON
	Name      string                      `gorm:"size:255;not null" json:"name"`
	Roles     datatypes.JSONSlice[string] `json:"roles"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// RegisterRequest is the request structure for creating a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,strongpassword"`
	Name     string `json:"name" binding:"required,min=2,max=255"`
}

// LoginRequest is the request structure for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the response structure for user data (without sensitive info)
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentUserResponse is what /api/auth/me returns
type CurrentUserResponse struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// GetRoles returns the stored roles plus ROLE_USER, without duplicates
func (u *User) GetRoles() []string {
	roles := make([]string, 0, len(u.Roles)+1)
	seen := make(map[string]struct{}, len(u.Roles)+1)

	for _, r := range append([]string(u.Roles), jwt.RoleUser) {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}

	return roles
}

// HasRole reports whether the user carries role
func (u *User) HasRole(role string) bool {
	for _, r := range u.GetRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsBot reports whether the account belongs to a chatbot plugin
func (u *User) IsBot() bool {
	for _, r := range u.Roles {
		if r == jwt.RoleBot {
			return true
		}
	}
	return false
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BeforeCreate is a GORM hook to hash the password before saving.
// Bot accounts are stored without a password.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Password != "" {
		hashedPassword, err := HashPassword(u.Password)
		if err != nil {
			return err
		}
		u.Password = hashedPassword
	}

	if u.Roles == nil {
		u.Roles = datatypes.JSONSlice[string]{}
	}

	return nil
}

// ToResponse converts a User model to a UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     u.GetRoles(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToCurrentUser converts a User model to the /me payload
func (u *User) ToCurrentUser() CurrentUserResponse {
	return CurrentUserResponse{
		Email: u.Email,
		Name:  u.Name,
		Roles: u.GetRoles(),
	}
}
