package user_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
	emailsvc "github.com/sonalink/sonalink/services/email"
	"github.com/sonalink/sonalink/services/filestore"
	dummydb "github.com/sonalink/sonalink/storage/database/dummy"
	testutil "github.com/sonalink/sonalink/tests"
)

const strongPwd = "Quantum#Leap42"

type fixture struct {
	db    *dummydb.DB
	repo  user.Repository
	svc   *user.Service
	files *filestore.MemoryStore
}

func setup(t *testing.T) fixture {
	t.Helper()
	logger := new(testutil.Logger)
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)
	emailsvc.ResetSentMessages()

	db := dummydb.Open()
	repo := dummydb.NewUserRepository(db)
	files := filestore.NewMemoryStore("http://files.test")
	svc := user.NewService(
		dummydb.NewTransactor(db),
		repo,
		emailsvc.NewConsoleServiceMock(conf, logger),
		files,
		conf,
		logger,
	)
	return fixture{db: db, repo: repo, svc: svc, files: files}
}

// tokenFromLastEmail extracts the token following linkPath in the newest email.
func tokenFromLastEmail(t *testing.T, linkPath string) string {
	t.Helper()
	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok, "no email sent")
	i := strings.Index(msg.TextContent, linkPath)
	require.NotEqual(t, -1, i, "link %s not found in %q", linkPath, msg.TextContent)
	rest := msg.TextContent[i+len(linkPath):]
	return strings.Fields(rest)[0]
}

func TestSignupAndVerify(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	usr, err := fx.svc.Signup(ctx, user.NewUser{Name: "Anu", Email: "anu@sona.ac.in", Password: strongPwd})
	require.NoError(t, err)
	assert.False(t, usr.IsVerified)
	assert.NotEqual(t, []byte(strongPwd), usr.PasswordHash)

	msg, ok := emailsvc.LastSentMessage()
	if assert.True(t, ok) {
		assert.Equal(t, "anu@sona.ac.in", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Hi Anu")
	}

	_, err = fx.svc.Authenticate(ctx, "anu@sona.ac.in", strongPwd)
	assert.True(t, isAuthError(err, 403), "unverified users cannot log in")

	token := tokenFromLastEmail(t, "/verify-email/")
	usr, err = fx.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)
	assert.False(t, usr.VerificationToken.Valid)

	// tokens are single use
	_, err = fx.svc.VerifyEmail(ctx, token)
	assert.Error(t, err)

	usr, err = fx.svc.Authenticate(ctx, " ANU@sona.ac.in ", strongPwd)
	require.NoError(t, err)
	assert.True(t, usr.LastLogin.Valid)
}

func TestSignupDuplicateEmail(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, fx.repo, "Anu", "anu@sona.ac.in", strongPwd, true)

	_, err := fx.svc.Signup(ctx, user.NewUser{Name: "Anu 2", Email: "anu@sona.ac.in", Password: strongPwd})
	assert.Equal(t, user.ErrEmailExists, err)
	_, ok := emailsvc.LastSentMessage()
	assert.False(t, ok)
}

func TestVerifyEmailExpired(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, user.NewUser{Name: "Anu", Email: "anu@sona.ac.in", Password: strongPwd})
	require.NoError(t, err)
	token := tokenFromLastEmail(t, "/verify-email/")

	user.NowFunc = func() time.Time { return time.Now().Add(4 * 24 * time.Hour) }
	defer func() { user.NowFunc = time.Now }()

	_, err = fx.svc.VerifyEmail(ctx, token)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestResendVerification(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.Signup(ctx, user.NewUser{Name: "Anu", Email: "anu@sona.ac.in", Password: strongPwd})
	require.NoError(t, err)
	first := tokenFromLastEmail(t, "/verify-email/")

	require.NoError(t, fx.svc.ResendVerification(ctx, "anu@sona.ac.in"))
	second := tokenFromLastEmail(t, "/verify-email/")
	assert.NotEqual(t, first, second)

	_, err = fx.svc.VerifyEmail(ctx, first)
	assert.Error(t, err, "the previous token is replaced")
	_, err = fx.svc.VerifyEmail(ctx, second)
	assert.NoError(t, err)

	// unknown & verified emails are silently ignored
	emailsvc.ResetSentMessages()
	assert.NoError(t, fx.svc.ResendVerification(ctx, "nobody@sona.ac.in"))
	assert.NoError(t, fx.svc.ResendVerification(ctx, "anu@sona.ac.in"))
	_, ok := emailsvc.LastSentMessage()
	assert.False(t, ok)
}

func TestAuthenticate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, fx.repo, "Anu", "anu@sona.ac.in", strongPwd, true)

	tests := []struct {
		name       string
		email, pwd string
		wantStatus int
	}{
		{name: "unknown email", email: "x@sona.ac.in", pwd: strongPwd, wantStatus: 401},
		{name: "wrong password", email: "anu@sona.ac.in", pwd: "nope", wantStatus: 401},
		{name: "valid", email: "anu@sona.ac.in", pwd: strongPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			assert.True(t, isAuthError(err, tt.wantStatus))
		})
	}

	t.Run("database failure", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		fx.db.FailOn("GetUserByEmail", dbErr)
		_, err := fx.svc.Authenticate(ctx, "anu@sona.ac.in", strongPwd)
		assert.Equal(t, dbErr, errors.Cause(err))
	})
}

func TestPasswordReset(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, fx.repo, "Anu", "anu@sona.ac.in", strongPwd, true)

	require.NoError(t, fx.svc.RequestPasswordReset(ctx, "anu@sona.ac.in"))
	token := tokenFromLastEmail(t, "/reset-password/")

	t.Run("weak password", func(t *testing.T) {
		err := fx.svc.ResetPassword(ctx, token, user.ResetPassword{Password: "password"})
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("bogus token", func(t *testing.T) {
		err := fx.svc.ResetPassword(ctx, "1-abc-def", user.ResetPassword{Password: "Another#Pass77"})
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("valid token", func(t *testing.T) {
		require.NoError(t, fx.svc.ResetPassword(ctx, token, user.ResetPassword{Password: "Another#Pass77"}))
		_, err := fx.svc.Authenticate(ctx, "anu@sona.ac.in", "Another#Pass77")
		assert.NoError(t, err)
	})

	t.Run("token is spent once the password changed", func(t *testing.T) {
		err := fx.svc.ResetPassword(ctx, token, user.ResetPassword{Password: "Third#Pass777"})
		assert.Error(t, err)
	})

	t.Run("unknown email sends nothing", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		require.NoError(t, fx.svc.RequestPasswordReset(ctx, "nobody@sona.ac.in"))
		_, ok := emailsvc.LastSentMessage()
		assert.False(t, ok)
	})
}

func TestUpdateProfile(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, fx.repo, "Anu", "anu@sona.ac.in", strongPwd, true)

	bio := "Final year, ECE"
	got, err := fx.svc.UpdateProfile(ctx, usr.ID, user.UpdateProfile{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Anu", got.Name)
	assert.Equal(t, bio, got.Bio)

	profile, err := fx.svc.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, bio, profile.Bio)

	_, err = fx.svc.GetProfile(ctx, 9999)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUpdateAvatar(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, fx.repo, "Anu", "anu@sona.ac.in", strongPwd, true)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	pngData := buf.Bytes()

	got, err := fx.svc.UpdateAvatar(ctx, usr.ID, user.File{Filename: "me.png", Size: int64(len(pngData)), Content: bytes.NewReader(pngData)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.AvatarURL, "http://files.test/avatars/"))
	firstKey := got.AvatarKey.String
	obj, ok := fx.files.Object(firstKey)
	if assert.True(t, ok) {
		assert.Equal(t, "image/jpeg", obj.ContentType)
	}

	// the previous avatar is removed
	got, err = fx.svc.UpdateAvatar(ctx, usr.ID, user.File{Filename: "me.png", Size: int64(len(pngData)), Content: bytes.NewReader(pngData)})
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, got.AvatarKey.String)
	assert.Equal(t, 1, fx.files.Len())

	t.Run("not an image", func(t *testing.T) {
		_, err := fx.svc.UpdateAvatar(ctx, usr.ID, user.File{Filename: "me.png", Size: 5, Content: strings.NewReader("hello")})
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("failed save removes the new object", func(t *testing.T) {
		fx.db.FailOn("UpdateUser", errors.New("connection reset"))
		_, err := fx.svc.UpdateAvatar(ctx, usr.ID, user.File{Filename: "me.png", Size: int64(len(pngData)), Content: bytes.NewReader(pngData)})
		assert.Error(t, err)
		assert.Equal(t, 1, fx.files.Len())
	})
}

func isAuthError(err error, status int) bool {
	var aerr *core.AuthError
	return errors.As(err, &aerr) && aerr.Status == status
}
