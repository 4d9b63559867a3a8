package handlers

import (
	"context"

	"github.com/geekheaven/identity/internal/models"
	"github.com/geekheaven/identity/internal/services"
)

// MockIdentityService implements IdentityServiceInterface for testing
type MockIdentityService struct {
	RegisterFunc                 func(ctx context.Context, email, password, name string) (*services.AuthResult, error)
	SignInFunc                   func(ctx context.Context, email, password string) (*services.AuthResult, error)
	SignInWithGoogleFunc         func(ctx context.Context, oauthAccessToken string) (*services.AuthResult, error)
	RefreshFunc                  func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	GetByIDFunc                  func(ctx context.Context, id string) (*models.Identity, error)
	ChangePasswordFunc           func(ctx context.Context, identityID, currentPassword, newPassword string) error
	RequestPasswordResetFunc     func(ctx context.Context, email string) error
	ResetPasswordFunc            func(ctx context.Context, resetToken, newPassword string) error
	IsResetTokenValidFunc        func(ctx context.Context, resetToken string) bool
	RequestEmailVerificationFunc func(ctx context.Context, identityID string) error
	ConfirmEmailVerificationFunc func(ctx context.Context, token string) (string, string, error)
}

func (m *MockIdentityService) Register(ctx context.Context, email, password, name string) (*services.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdentityService) SignIn(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockIdentityService) SignInWithGoogle(ctx context.Context, oauthAccessToken string) (*services.AuthResult, error) {
	if m.SignInWithGoogleFunc != nil {
		return m.SignInWithGoogleFunc(ctx, oauthAccessToken)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockIdentityService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockIdentityService) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, identityID, currentPassword, newPassword)
	}
	return models.ErrInvalidCredentials
}

func (m *MockIdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockIdentityService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, resetToken, newPassword)
	}
	return models.ErrInvalidToken
}

func (m *MockIdentityService) IsResetTokenValid(ctx context.Context, resetToken string) bool {
	if m.IsResetTokenValidFunc != nil {
		return m.IsResetTokenValidFunc(ctx, resetToken)
	}
	return false
}

func (m *MockIdentityService) RequestEmailVerification(ctx context.Context, identityID string) error {
	if m.RequestEmailVerificationFunc != nil {
		return m.RequestEmailVerificationFunc(ctx, identityID)
	}
	return nil
}

func (m *MockIdentityService) ConfirmEmailVerification(ctx context.Context, token string) (string, string, error) {
	if m.ConfirmEmailVerificationFunc != nil {
		return m.ConfirmEmailVerificationFunc(ctx, token)
	}
	return "", "", models.ErrInvalidToken
}
