package auth

import (
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/session"
)

type SignupDTO struct {
	Email        string  `json:"email"        binding:"required,email"`
	Password     string  `json:"password"     binding:"required,min=8"`
	BusinessName string  `json:"businessName" binding:"required"`
	Country      string  `json:"country"`
	Address      *string `json:"address"`
}

type VerifyOtpDTO struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"  binding:"required"`
}

type ResendOtpDTO struct {
	Email   string `json:"email"   binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RequestOtpDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordDTO struct {
	Email       string `json:"email"       binding:"required,email"`
	Code        string `json:"code"        binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type sellerResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	BusinessName string     `json:"business_name"`
	Country      string     `json:"country"`
	Address      *string    `json:"address"`
	JoinedAt     time.Time  `json:"joined_at"`
	VerifiedAt   *time.Time `json:"verified_at"`
}

func toSellerResponse(s *models.Seller) sellerResponse {
	return sellerResponse{
		ID:           s.ID.Hex(),
		Email:        s.Email,
		BusinessName: s.BusinessName,
		Country:      s.Country,
		Address:      s.Address,
		JoinedAt:     s.JoinedAt,
		VerifiedAt:   s.VerifiedAt,
	}
}

type otpIssuedResponse struct {
	Message      string    `json:"message"`
	OtpExpiresAt time.Time `json:"otp_expires_at"`
}

type loginResponse struct {
	Message string             `json:"message"`
	Seller  sellerResponse     `json:"seller"`
	Tokens  *session.TokenPair `json:"tokens"`
}

type refreshResponse struct {
	Message string             `json:"message"`
	Tokens  *session.TokenPair `json:"tokens"`
}
