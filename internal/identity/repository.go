package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// UserRepository persists user principals keyed by their unique name.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	FindByName(ctx context.Context, name string) (User, error)
	Save(ctx context.Context, user User) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	DeleteByName(ctx context.Context, name string) error
	List(ctx context.Context) ([]User, error)
}

// InstitutionRepository persists institution principals keyed by their unique name.
type InstitutionRepository interface {
	Create(ctx context.Context, inst Institution) error
	FindByName(ctx context.Context, name string) (Institution, error)
	Save(ctx context.Context, inst Institution) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	DeleteByName(ctx context.Context, name string) error
}

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository builds a Postgres-backed user repository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, name, password_hash, email, phone, roles, otp, otp_expires_at,
        email_verified, phone_verified, credit_score_verified, credit_score, loan_approved,
        history, profile, created_at, updated_at`

// Create inserts a new user.
func (r *PostgresUserRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	otp, expires := nullableOTP(user)
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		userID, user.Name, user.PasswordHash, user.Email, user.Phone, nonNil(user.Roles), otp, expires,
		user.EmailVerified, user.PhoneVerified, user.CreditScoreVerified, user.CreditScore, user.LoanApproved,
		nonNil(user.History), user.Profile, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return translateWriteErr(err)
}

// FindByName fetches a user by its unique name.
func (r *PostgresUserRepository) FindByName(ctx context.Context, name string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// Save overwrites every mutable column of an existing user. Last writer wins.
func (r *PostgresUserRepository) Save(ctx context.Context, user User) error {
	otp, expires := nullableOTP(user)
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, email = $3, phone = $4, roles = $5,
        otp = $6, otp_expires_at = $7, email_verified = $8, phone_verified = $9,
        credit_score_verified = $10, credit_score = $11, loan_approved = $12, history = $13,
        profile = $14, updated_at = $15
        WHERE name = $1`,
		user.Name, user.PasswordHash, user.Email, user.Phone, nonNil(user.Roles), otp, expires,
		user.EmailVerified, user.PhoneVerified, user.CreditScoreVerified, user.CreditScore,
		user.LoanApproved, nonNil(user.History), user.Profile, user.UpdatedAt.UTC())
	if err != nil {
		return translateWriteErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE name = $1)`, name)
}

func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone)
}

func (r *PostgresUserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteByName removes a user.
func (r *PostgresUserRepository) DeleteByName(ctx context.Context, name string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every user ordered by creation time.
func (r *PostgresUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id      uuid.UUID
		otp     *string
		expires *time.Time
		user    User
	)
	err := row.Scan(&id, &user.Name, &user.PasswordHash, &user.Email, &user.Phone, &user.Roles, &otp, &expires,
		&user.EmailVerified, &user.PhoneVerified, &user.CreditScoreVerified, &user.CreditScore, &user.LoanApproved,
		&user.History, &user.Profile, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	if otp != nil {
		user.OTP = *otp
	}
	if expires != nil {
		user.OTPExpiresAt = expires.UTC()
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func nullableOTP(user User) (*string, *time.Time) {
	if !user.HasPendingOTP() {
		return nil, nil
	}
	expires := user.OTPExpiresAt.UTC()
	return &user.OTP, &expires
}

// PostgresInstitutionRepository implements InstitutionRepository using PostgreSQL.
type PostgresInstitutionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresInstitutionRepository builds a Postgres-backed institution repository.
func NewPostgresInstitutionRepository(db *pgxpool.Pool) *PostgresInstitutionRepository {
	return &PostgresInstitutionRepository{db: db}
}

// Create inserts a new institution.
func (r *PostgresInstitutionRepository) Create(ctx context.Context, inst Institution) error {
	instID, err := uuid.Parse(inst.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO institutions (id, name, credential_hash, roles, approved_users, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		instID, inst.Name, inst.CredentialHash, nonNil(inst.Roles), nonNil(inst.ApprovedUsers),
		inst.CreatedAt.UTC(), inst.UpdatedAt.UTC())
	return translateWriteErr(err)
}

// FindByName fetches an institution by its unique name.
func (r *PostgresInstitutionRepository) FindByName(ctx context.Context, name string) (Institution, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, credential_hash, roles, approved_users, created_at, updated_at
        FROM institutions WHERE name = $1`, name)
	var (
		id   uuid.UUID
		inst Institution
	)
	err := row.Scan(&id, &inst.Name, &inst.CredentialHash, &inst.Roles, &inst.ApprovedUsers, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Institution{}, ErrNotFound
	}
	if err != nil {
		return Institution{}, err
	}
	inst.ID = id.String()
	inst.CreatedAt = inst.CreatedAt.UTC()
	inst.UpdatedAt = inst.UpdatedAt.UTC()
	return inst, nil
}

// Save overwrites the mutable columns of an existing institution.
func (r *PostgresInstitutionRepository) Save(ctx context.Context, inst Institution) error {
	cmd, err := r.db.Exec(ctx, `UPDATE institutions SET credential_hash = $2, roles = $3, approved_users = $4, updated_at = $5
        WHERE name = $1`,
		inst.Name, inst.CredentialHash, nonNil(inst.Roles), nonNil(inst.ApprovedUsers), inst.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresInstitutionRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM institutions WHERE name = $1)`, name).Scan(&ok)
	return ok, err
}

// DeleteByName removes an institution.
func (r *PostgresInstitutionRepository) DeleteByName(ctx context.Context, name string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM institutions WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func translateWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
