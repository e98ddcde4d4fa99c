package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
)

const userColumns = `id, name, email, password_hash, bio, avatar_url, avatar_key, is_verified,
	verification_token, verification_expires, last_login, created_at, updated_at`

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repo{db: db}}
}

func (r userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO users (name, email, password_hash, bio, avatar_url, avatar_key, is_verified,
			verification_token, verification_expires, last_login, created_at, updated_at)
		VALUES (:name, :email, :password_hash, :bio, :avatar_url, :avatar_key, :is_verified,
			:verification_token, :verification_expires, :last_login, :created_at, :updated_at)
		RETURNING ` + userColumns
	q, args, err := sqlx.Named(q, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}

	var created user.User
	if err = sqlx.GetContext(ctx, r.getExec(exec), &created, sqlx.Rebind(sqlx.DOLLAR, q), args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func (r userRepository) getUser(ctx context.Context, exec sqlx.QueryerContext, where string, arg interface{}) (user.User, error) {
	var usr user.User
	err := sqlx.GetContext(ctx, exec, &usr, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (r userRepository) GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (user.User, error) {
	return r.getUser(ctx, r.getExec(exec), "id = $1", id)
}

func (r userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getUser(ctx, r.db, "email = $1", email)
}

func (r userRepository) GetUserByVerificationToken(ctx context.Context, token string) (user.User, error) {
	return r.getUser(ctx, r.db, "verification_token = $1", token)
}

func (r userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET name = :name, password_hash = :password_hash, bio = :bio,
			avatar_url = :avatar_url, avatar_key = :avatar_key, is_verified = :is_verified,
			verification_token = :verification_token, verification_expires = :verification_expires,
			last_login = :last_login, updated_at = :updated_at
		WHERE id = :id
		RETURNING ` + userColumns
	q, args, err := sqlx.Named(q, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}

	var updated user.User
	if err = sqlx.GetContext(ctx, r.getExec(exec), &updated, sqlx.Rebind(sqlx.DOLLAR, q), args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "updating user")
	}
	return updated, nil
}

func (r userRepository) GetContributions(ctx context.Context, id int64) (user.Contributions, error) {
	q := `SELECT
		(SELECT COUNT(*) FROM materials WHERE uploader_id = $1) AS materials,
		(SELECT COUNT(*) FROM forum_threads WHERE creator_id = $1) AS threads,
		(SELECT COUNT(*) FROM forum_replies WHERE creator_id = $1) AS replies,
		(SELECT COUNT(*) FROM forum_replies WHERE creator_id = $1 AND is_accepted_answer) AS accepted_answers,
		(SELECT COUNT(*) FROM quiz_submissions WHERE user_id = $1) AS quiz_submissions`

	var c user.Contributions
	if err := sqlx.GetContext(ctx, r.db, &c, q, id); err != nil {
		return user.Contributions{}, errors.Wrap(err, "counting contributions")
	}
	return c, nil
}
