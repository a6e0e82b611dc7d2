// internal/api/models.go

package api

import (
	"time"

	"github.com/intermernet/matchday/internal/database"
)

// UserResponse is the DTO for the signed-in user's profile. The password
// hash never leaves the server.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	VerifiedAt    *time.Time `json:"verifiedAt"`
	HasPassword   bool       `json:"hasPassword"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// toUserResponse converts the database model into the public DTO.
func toUserResponse(user *database.User) UserResponse {
	var verifiedAt *time.Time
	if user.EmailVerifiedAt.Valid {
		verifiedAt = &user.EmailVerifiedAt.Time
	}
	return UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.Verified(),
		VerifiedAt:    verifiedAt,
		HasPassword:   user.PasswordHash.Valid,
		CreatedAt:     user.CreatedAt,
	}
}
