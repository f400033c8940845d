package auth

import (
	"github.com/angelmondragon/cookerz-backend/internal/users"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the sign-in endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service sign-up payload. KitchenName is only
// read for cookers.
type RegisterRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required"`
	DisplayName string         `json:"display_name" validate:"required"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role" validate:"required,enum"`
	KitchenName *string        `json:"kitchen_name,omitempty"`
}

// RefreshRequest pairs the (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and user produced by sign-in, sign-up or refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
