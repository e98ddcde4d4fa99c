package dummydb

import (
	"context"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := r.db.lockWrite("CreateUser", exec)
	defer r.db.unlock()
	if err != nil {
		return user.User{}, err
	}

	for _, u := range r.db.t.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
		if usr.VerificationToken.Valid && u.VerificationToken == usr.VerificationToken {
			return user.User{}, core.NewConflictError("verification token already in use")
		}
	}
	usr.ID = r.db.nextID()
	r.db.t.users[usr.ID] = usr
	return usr, nil
}

func (r *userRepository) GetUserByID(_ context.Context, id int64, _ ...core.DBExecutor) (user.User, error) {
	err := r.db.lock("GetUserByID")
	defer r.db.mu.Unlock()
	if err != nil {
		return user.User{}, err
	}
	if usr, ok := r.db.t.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) find(method string, match func(u user.User) bool) (user.User, error) {
	err := r.db.lock(method)
	defer r.db.mu.Unlock()
	if err != nil {
		return user.User{}, err
	}
	for _, u := range r.db.t.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return r.find("GetUserByEmail", func(u user.User) bool { return u.Email == email })
}

func (r *userRepository) GetUserByVerificationToken(_ context.Context, token string) (user.User, error) {
	return r.find("GetUserByVerificationToken", func(u user.User) bool {
		return u.VerificationToken.Valid && u.VerificationToken.String == token
	})
}

func (r *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := r.db.lockWrite("UpdateUser", exec)
	defer r.db.unlock()
	if err != nil {
		return user.User{}, err
	}
	old, ok := r.db.t.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Email = old.Email
	usr.CreatedAt = old.CreatedAt
	r.db.t.users[usr.ID] = usr
	return usr, nil
}

func (r *userRepository) GetContributions(_ context.Context, id int64) (user.Contributions, error) {
	err := r.db.lock("GetContributions")
	defer r.db.mu.Unlock()
	if err != nil {
		return user.Contributions{}, err
	}

	var c user.Contributions
	for _, m := range r.db.t.materials {
		if m.UploaderID == id {
			c.Materials++
		}
	}
	for _, t := range r.db.t.threads {
		if t.CreatorID == id {
			c.Threads++
		}
	}
	for _, reply := range r.db.t.replies {
		if reply.CreatorID == id {
			c.Replies++
			if reply.IsAcceptedAnswer {
				c.AcceptedAnswers++
			}
		}
	}
	for _, s := range r.db.t.submissions {
		if s.UserID == id {
			c.Submissions++
		}
	}
	return c, nil
}
