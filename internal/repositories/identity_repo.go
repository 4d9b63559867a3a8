package repositories

import (
	"context"
	"fmt"

	"github.com/geekheaven/identity/internal/database"
	"github.com/geekheaven/identity/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const identityColumns = `id, email, name, password_hash, provider, google_subject_id, profile_image, is_email_verified, created_at, updated_at`

type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentityRow(scanner rowScanner) (*models.Identity, error) {
	var identity models.Identity
	var passwordHash, googleSubjectID, profileImage *string

	err := scanner.Scan(
		&identity.ID, &identity.Email, &identity.Name,
		&passwordHash, &identity.Provider, &googleSubjectID, &profileImage,
		&identity.IsEmailVerified, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		identity.PasswordHash = *passwordHash
	}
	if googleSubjectID != nil {
		identity.GoogleSubjectID = *googleSubjectID
	}
	if profileImage != nil {
		identity.ProfileImage = *profileImage
	}

	return &identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE id = $1`, identityColumns)
	return scanIdentityRow(r.pool.QueryRow(ctx, query, id))
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE email = $1`, identityColumns)
	return scanIdentityRow(r.pool.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) GetByEmailAndProvider(ctx context.Context, email, provider string) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE email = $1 AND provider = $2`, identityColumns)
	return scanIdentityRow(r.pool.QueryRow(ctx, query, email, provider))
}

// GetByEmailOrGoogleSubject finds the identity a Google sign-in should
// resolve to: matched either by email or by previously linked subject id.
func (r *IdentityRepository) GetByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE email = $1 OR google_subject_id = $2`, identityColumns)
	return scanIdentityRow(r.pool.QueryRow(ctx, query, email, subjectID))
}

func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := fmt.Sprintf(`
		INSERT INTO identities (email, name, password_hash, provider, google_subject_id, profile_image, is_email_verified)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING %s
	`, identityColumns)

	return scanIdentityRow(r.pool.QueryRow(ctx, query,
		identity.Email, identity.Name, identity.PasswordHash,
		identity.Provider, identity.GoogleSubjectID, identity.ProfileImage,
		identity.IsEmailVerified,
	))
}

func (r *IdentityRepository) Update(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := fmt.Sprintf(`
		UPDATE identities
		SET name = $2,
		    password_hash = NULLIF($3, ''),
		    provider = $4,
		    google_subject_id = NULLIF($5, ''),
		    profile_image = NULLIF($6, ''),
		    is_email_verified = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, identityColumns)

	return scanIdentityRow(r.pool.QueryRow(ctx, query,
		identity.ID, identity.Name, identity.PasswordHash,
		identity.Provider, identity.GoogleSubjectID, identity.ProfileImage,
		identity.IsEmailVerified,
	))
}
