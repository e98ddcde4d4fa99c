package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestMakeVerifyToken(t *testing.T) {
	timeout := time.Hour
	tg := newTokenGenerator("secret", timeout)

	now := time.Now()
	usr := User{
		ID:        42,
		Name:      "T",
		Email:     "t@sona.ac.in",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: null.TimeFrom(now),
	}
	_ = usr.SetPassword("pwd", 4)

	validToken, err := tg.makeToken(usr)
	assert.NoError(t, err)

	// generate an expired token
	NowFunc = func() time.Time { return time.Now().Add(-2 * timeout) }
	expiredToken, _ := tg.makeToken(usr)
	NowFunc = time.Now // reset

	// a token is bound to the password it was made for
	changedPwd := usr
	_ = changedPwd.SetPassword("other-pwd", 4)

	// and to the last login
	loggedIn := usr
	loggedIn.LastLogin = null.TimeFrom(now.Add(time.Minute))

	otherSecret, _ := newTokenGenerator("other", timeout).makeToken(usr)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "16-hahaha!-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "16-NRXWY-sig", wantErr: errInvalidToken},
		{name: "invalid signature", usr: usr, token: "16-GE2DA-sig", wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: otherSecret, wantErr: errInvalidToken},
		{name: "password changed", usr: changedPwd, token: validToken, wantErr: errInvalidToken},
		{name: "logged in since", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tg.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestParseUID(t *testing.T) {
	tg := newTokenGenerator("secret", time.Hour)
	usr := User{ID: 123456}
	_ = usr.SetPassword("pwd", 4)
	token, err := tg.makeToken(usr)
	assert.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantUID int64
		wantErr error
	}{
		{name: "valid", token: token, wantUID: 123456},
		{name: "too few parts", token: "2n9c-abc", wantErr: errInvalidToken},
		{name: "not base36", token: "!!-abc-def", wantErr: errInvalidToken},
		{name: "zero id", token: "0-abc-def", wantErr: errInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, err := parseUID(tt.token)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantUID, uid)
		})
	}
}
