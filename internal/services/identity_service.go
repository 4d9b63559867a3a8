package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/geekheaven/identity/internal/auth"
	"github.com/geekheaven/identity/internal/config"
	"github.com/geekheaven/identity/internal/models"
	pkgauth "github.com/geekheaven/identity/pkg/auth"
	pkglogger "github.com/geekheaven/identity/pkg/logger"
)

// IdentityRepository is the user-store collaborator. The storage engine is
// irrelevant to this service.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.Identity, error)
	GetByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) (*models.Identity, error)
}

// AuthResult is returned by the operations that establish a session.
type AuthResult struct {
	Identity *models.Identity
	Tokens   *models.TokenPair
}

// IdentityService orchestrates registration, credential and Google sign-in,
// token refresh, password change, and the reset/verification flows.
type IdentityService struct {
	repo        IdentityRepository
	tm          *auth.TokenManager
	tokenStore  *EphemeralTokenStore
	google      GoogleVerifier
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	cfg         *config.AuthConfig
}

func NewIdentityService(
	repo IdentityRepository,
	tm *auth.TokenManager,
	tokenStore *EphemeralTokenStore,
	google GoogleVerifier,
	email EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	cfg *config.AuthConfig,
) *IdentityService {
	return &IdentityService{
		repo:        repo,
		tm:          tm,
		tokenStore:  tokenStore,
		google:      google,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
		cfg:         cfg,
	}
}

// Register creates a credentials-provider identity and mints a token pair.
// A duplicate email is ErrAlreadyExists so the UI can suggest signing in.
func (s *IdentityService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already registered")
		return nil, models.ErrAlreadyExists
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	identity, err := s.repo.Create(ctx, &models.Identity{
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Provider:        models.ProviderCredentials,
		IsEmailVerified: false,
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, models.ErrAlreadyExists
		}
		s.logger.Error("failed to create identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	tokens, err := s.tm.GenerateTokenPair(identity)
	if err != nil {
		s.logger.Error("failed to generate token pair", slog.String("user_id", identity.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("identity registered", slog.String("user_id", identity.ID))
	s.auditLogger.LogAccountAction("identity_registered", identity.ID, nil)

	return &AuthResult{Identity: identity, Tokens: tokens}, nil
}

// SignIn authenticates with email and password. An unknown email, a
// Google-only account, and a wrong password are all ErrInvalidCredentials;
// the caller cannot tell which half of the check failed.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	identity, err := s.repo.GetByEmailAndProvider(ctx, email, models.ProviderCredentials)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("sign-in failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "signin_failed",
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if identity.PasswordHash == "" || !pkgauth.VerifyPassword(password, identity.PasswordHash) {
		s.logger.Info("sign-in failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "signin_failed",
			UserID:        identity.ID,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	tokens, err := s.tm.GenerateTokenPair(identity)
	if err != nil {
		s.logger.Error("failed to generate token pair", slog.String("user_id", identity.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "signin_success",
		UserID:    identity.ID,
		Success:   true,
	})

	return &AuthResult{Identity: identity, Tokens: tokens}, nil
}

// SignInWithGoogle exchanges a caller-supplied OAuth access token for
// Google's userinfo and resolves it to an identity.
//
// Linking is automatic: any pre-existing account with a matching email is
// bound to the presented Google subject on first Google sign-in, without a
// confirmation step. Email-ownership-based linking is a known risk when a
// mail provider allows address reuse; preserved deliberately.
func (s *IdentityService) SignInWithGoogle(ctx context.Context, oauthAccessToken string) (*AuthResult, error) {
	info, err := s.google.Verify(ctx, oauthAccessToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			return nil, models.ErrInvalidToken
		}
		s.logger.Error("google userinfo exchange failed", slog.Any("error", err))
		return nil, models.ErrInvalidToken
	}

	email := normalizeEmail(info.Email)

	identity, err := s.repo.GetByEmailOrGoogleSubject(ctx, email, info.Subject)
	switch {
	case err == nil:
		if identity.GoogleSubjectID == "" && info.Subject != "" {
			identity.GoogleSubjectID = info.Subject
			identity.Provider = models.ProviderGoogle
			identity.IsEmailVerified = info.EmailVerified
			if info.Picture != "" {
				identity.ProfileImage = info.Picture
			}

			identity, err = s.repo.Update(ctx, identity)
			if err != nil {
				s.logger.Error("failed to link google account", slog.Any("error", err))
				return nil, models.ErrInternalServer
			}

			s.auditLogger.LogAccountAction("google_account_linked", identity.ID, nil)
		}

	case errors.Is(err, models.ErrNotFound):
		identity, err = s.repo.Create(ctx, &models.Identity{
			Email:           email,
			Name:            info.DisplayName(),
			Provider:        models.ProviderGoogle,
			GoogleSubjectID: info.Subject,
			ProfileImage:    info.Picture,
			IsEmailVerified: info.EmailVerified,
		})
		if err != nil {
			s.logger.Error("failed to create google identity", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogAccountAction("google_identity_created", identity.ID, nil)

	default:
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	tokens, err := s.tm.GenerateTokenPair(identity)
	if err != nil {
		s.logger.Error("failed to generate token pair", slog.String("user_id", identity.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "google_signin_success",
		UserID:    identity.ID,
		Success:   true,
	})

	return &AuthResult{Identity: identity, Tokens: tokens}, nil
}

// Refresh delegates to the token manager; typed decode errors propagate.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := s.tm.RefreshAccessToken(refreshToken)
	if err != nil {
		s.logger.Info("token refresh failed", slog.Any("error", err))
		return nil, err
	}
	return pair, nil
}

// GetByID fetches an identity; used by the /auth/me endpoint.
func (s *IdentityService) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// ChangePassword updates the password of an authenticated credentials
// identity. A wrong provider and a wrong current password both surface as
// ErrInvalidCredentials so this path cannot be used for enumeration either.
func (s *IdentityService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	identity, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !identity.HasPassword() || !pkgauth.VerifyPassword(currentPassword, identity.PasswordHash) {
		s.logger.Info("password change rejected", slog.String("user_id", identityID))
		s.auditLogger.LogPasswordChange(identityID, false)
		return models.ErrInvalidCredentials
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	identity.PasswordHash = hash
	if _, err := s.repo.Update(ctx, identity); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", identityID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(identityID, true)
	return nil
}

// RequestPasswordReset issues a one-time reset token and hands it to the
// email collaborator. The outward result is identical whether or not a
// credentials identity exists for the address; failures after the lookup
// are logged but never surfaced, so the response shape cannot leak account
// existence.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	identity, err := s.repo.GetByEmailAndProvider(ctx, email, models.ProviderCredentials)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up identity for reset", slog.Any("error", err))
		}
		return nil
	}

	token, err := s.tokenStore.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{
		UserID: identity.ID,
	}, s.cfg.ResetTokenTTL)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.String("user_id", identity.ID), slog.Any("error", err))
		return nil
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.email.SendPasswordResetEmail(ctx, identity.Email, identity.Name, token, expiresAt); err != nil {
		s.logger.Error("failed to send reset email", slog.String("user_id", identity.ID), slog.Any("error", err))
		return nil
	}

	s.auditLogger.LogAccountAction("password_reset_requested", identity.ID, nil)
	return nil
}

// ResetPassword redeems a one-time reset token and stores the new password.
// The atomic redemption consumes the token, so a second call with the same
// token (or a concurrent one) observes not-found.
func (s *IdentityService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	payload, err := s.tokenStore.Redeem(ctx, ResetTokenPrefix, resetToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to redeem reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	identity, err := s.repo.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// The account may have switched to Google auth while the token was in
	// flight; a reset is only meaningful for credentials identities.
	if identity.Provider != models.ProviderCredentials {
		return models.ErrInvalidToken
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	identity.PasswordHash = hash
	if _, err := s.repo.Update(ctx, identity); err != nil {
		s.logger.Error("failed to store new password", slog.String("user_id", identity.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_completed", identity.ID, nil)
	return nil
}

// RequestEmailVerification issues a one-time verification token carrying
// the pending email and name, and hands it to the email collaborator.
func (s *IdentityService) RequestEmailVerification(ctx context.Context, identityID string) error {
	identity, err := s.repo.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := s.tokenStore.Issue(ctx, VerificationTokenPrefix, models.EphemeralPayload{
		UserID: identity.ID,
		Email:  identity.Email,
		Name:   identity.Name,
	}, s.cfg.VerificationTokenTTL)
	if err != nil {
		s.logger.Error("failed to issue verification token", slog.String("user_id", identity.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.cfg.VerificationTokenTTL)
	if err := s.email.SendVerificationEmail(ctx, identity.Email, identity.Name, token, expiresAt); err != nil {
		s.logger.Error("failed to send verification email", slog.String("user_id", identity.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("verification email queued", slog.String("user_id", identity.ID))
	return nil
}

// ConfirmEmailVerification redeems a verification token and marks the
// identity's email verified. Returns the verified email and name, carried
// in the token payload so no second read is needed to re-confirm them.
func (s *IdentityService) ConfirmEmailVerification(ctx context.Context, token string) (email, name string, err error) {
	payload, err := s.tokenStore.Redeem(ctx, VerificationTokenPrefix, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", "", models.ErrInvalidToken
		}
		s.logger.Error("failed to redeem verification token", slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	identity, err := s.repo.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", "", models.ErrInvalidToken
		}
		s.logger.Error("failed to look up identity", slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	identity.IsEmailVerified = true
	if _, err := s.repo.Update(ctx, identity); err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", identity.ID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("email_verified", identity.ID, nil)
	return payload.Email, payload.Name, nil
}

// ResetTokensForUser lists the user's outstanding reset tokens.
func (s *IdentityService) ResetTokensForUser(ctx context.Context, identityID string) ([]string, error) {
	return s.tokenStore.ListForUser(ctx, ResetTokenPrefix, identityID)
}

// RevokeResetTokens revokes every outstanding reset token for the user.
func (s *IdentityService) RevokeResetTokens(ctx context.Context, identityID string) (int, error) {
	revoked, err := s.tokenStore.RevokeAllForUser(ctx, ResetTokenPrefix, identityID)
	if err != nil {
		return 0, err
	}
	if revoked > 0 {
		s.auditLogger.LogAccountAction("reset_tokens_revoked", identityID, map[string]string{
			"count": strconv.Itoa(revoked),
		})
	}
	return revoked, nil
}

// IsResetTokenValid checks a reset token without consuming it.
func (s *IdentityService) IsResetTokenValid(ctx context.Context, resetToken string) bool {
	_, err := s.tokenStore.Peek(ctx, ResetTokenPrefix, resetToken)
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
