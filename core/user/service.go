package user

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sonalink/sonalink/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("User not found.")
	ErrEmailExists = core.NewConflictError("A user with this email already exists.")

	errInvalidCredentials = core.NewAuthError(401, "Invalid credentials.")
	errNotVerified        = core.NewAuthError(403, "Please verify your email before logging in.")
	errVerificationToken  = core.NewValidationError(
		errors.New("invalid verification token"),
		core.FieldError{Field: "token", Error: "Invalid or expired verification token."},
	)
	errResetToken = core.NewValidationError(
		errors.New("invalid reset token"),
		core.FieldError{Field: "token", Error: "Invalid or expired reset token."},
	)
)

type (
	Repository interface {
		// CreateUser fails with ErrEmailExists when the email is taken.
		CreateUser(ctx context.Context, u User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByVerificationToken(ctx context.Context, token string) (User, error)
		// UpdateUser saves every mutable field of u.
		UpdateUser(ctx context.Context, u User, exec ...core.DBExecutor) (User, error)
		GetContributions(ctx context.Context, id int64) (Contributions, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		mailSvc core.EmailService
		files   core.FileStore
		tokens  tokenGenerator
		conf    *core.Config
		logger  core.Logger
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	mailSvc core.EmailService,
	files core.FileStore,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		mailSvc: mailSvc,
		files:   files,
		tokens:  newTokenGenerator(conf.SecretKey, conf.Auth.PasswordResetTimeout),
		conf:    conf,
		logger:  logger,
	}
}

type emailData struct {
	Name  string
	Token string
}

// sendEmail renders the message before handing it over so that template errors surface to the caller.
func (svc *Service) sendEmail(usr User, subject, tmpl, token string) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: emailData{Name: usr.Name, Token: token},
	}
	if err := msg.Render(svc.conf.FrontendBaseURL); err != nil {
		return errors.Wrapf(err, "rendering %s email", tmpl)
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) setVerificationToken(usr *User) error {
	token, err := core.RandomHex(svc.conf.Auth.VerificationTokenBytes)
	if err != nil {
		return errors.Wrap(err, "generating verification token")
	}
	usr.VerificationToken = null.StringFrom(token)
	usr.VerificationExpires = null.TimeFrom(NowFunc().UTC().Add(svc.conf.Auth.VerificationTimeout))
	return nil
}

// Signup creates an unverified user and emails them a verification link.
// The user is not saved when the email cannot be prepared.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password, svc.conf.Auth.BcryptCost); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if err := svc.setVerificationToken(&usr); err != nil {
		return User{}, err
	}

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return err
		}
		return svc.sendEmail(usr, "Verify your SonaLink account", "verify_email", usr.VerificationToken.String)
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// ResendVerification issues a new verification token. Unknown and verified emails are ignored.
func (svc *Service) ResendVerification(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return err
	}
	if usr.IsVerified {
		return nil
	}

	if err = svc.setVerificationToken(&usr); err != nil {
		return err
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "saving verification token")
		}
		return svc.sendEmail(usr, "Verify your SonaLink account", "verify_email", usr.VerificationToken.String)
	})
}

func (svc *Service) VerifyEmail(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, errVerificationToken
	}
	usr, err := svc.repo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, errVerificationToken
		}
		return User{}, err
	}

	now := NowFunc().UTC()
	if usr.VerificationExpires.Valid && now.After(usr.VerificationExpires.Time) {
		return User{}, errVerificationToken
	}
	usr.IsVerified = true
	usr.VerificationToken = null.String{}
	usr.VerificationExpires = null.Time{}
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate checks the credentials of a verified user and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, errInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, errInvalidCredentials
	}
	if !usr.IsVerified {
		return User{}, errNotVerified
	}

	usr.LastLogin = null.TimeFrom(NowFunc().UTC())
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "recording login")
	}
	return usr, nil
}

// RequestPasswordReset emails a reset link. Unknown emails are ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			svc.logger.Info(fmt.Sprintf("password reset requested for unknown email %q", email))
			return nil
		}
		return err
	}
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	return svc.sendEmail(usr, "Reset your SonaLink password", "password_reset", token)
}

func (svc *Service) ResetPassword(ctx context.Context, token string, rp ResetPassword) error {
	uid, err := parseUID(token)
	if err != nil {
		return errResetToken
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return errResetToken
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, token); err != nil {
		return errResetToken
	}
	return svc.SetPassword(ctx, usr, rp.Password)
}

// SetPassword applies the password policy then saves the new password.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) error {
	if err := passwordPolicyError(pwd, usr); err != nil {
		return err
	}
	if err := usr.SetPassword(pwd, svc.conf.Auth.BcryptCost); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving password")
	}
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetProfile(ctx context.Context, id int64) (Profile, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return usr.Profile(), nil
}

func (svc *Service) UpdateProfile(ctx context.Context, id int64, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if up.Name != nil {
		usr.Name = *up.Name
	}
	if up.Bio != nil {
		usr.Bio = *up.Bio
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Contributions(ctx context.Context, id int64) (Contributions, error) {
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return Contributions{}, err
	}
	return svc.repo.GetContributions(ctx, id)
}

// CreateVerified creates an already verified user, for the admin CLI.
func (svc *Service) CreateVerified(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Name:       nu.Name,
		Email:      nu.Email,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password, svc.conf.Auth.BcryptCost); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}
