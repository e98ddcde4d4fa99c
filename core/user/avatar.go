package user

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sonalink/sonalink/core"
)

const avatarQuality = 85

func avatarError(msg string) error {
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: "avatar", Error: msg})
}

// processAvatar checks that data is an image, then centre-crops it to a size x size JPEG.
func processAvatar(data []byte, size int) ([]byte, error) {
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return nil, avatarError("Only image files are allowed!")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, avatarError("Avatar could not be decoded.")
	}

	var buf bytes.Buffer
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	if err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: avatarQuality}); err != nil {
		return nil, errors.Wrap(err, "encoding avatar")
	}
	return buf.Bytes(), nil
}

// UpdateAvatar replaces the user's avatar. The previous object is removed once the new one is saved.
func (svc *Service) UpdateAvatar(ctx context.Context, id int64, f File) (User, error) {
	maxBytes := svc.conf.Uploads.AvatarMaxBytes
	if f.Content == nil {
		return User{}, avatarError("No file uploaded.")
	}
	if f.Size > maxBytes {
		return User{}, avatarError(fmt.Sprintf("File too large. Max size is %dMB.", maxBytes>>20))
	}
	data, err := io.ReadAll(io.LimitReader(f.Content, maxBytes+1))
	if err != nil {
		return User{}, errors.Wrap(err, "reading avatar")
	}
	if int64(len(data)) > maxBytes {
		return User{}, avatarError(fmt.Sprintf("File too large. Max size is %dMB.", maxBytes>>20))
	}

	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	thumb, err := processAvatar(data, svc.conf.Uploads.AvatarSize)
	if err != nil {
		return User{}, err
	}
	key := fmt.Sprintf("avatars/%s.jpg", uuid.New().String())
	if err = svc.files.Put(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		return User{}, errors.Wrap(err, "storing avatar")
	}

	oldKey := usr.AvatarKey
	usr.AvatarKey = null.StringFrom(key)
	usr.AvatarURL = svc.files.PublicURL(key)
	usr.UpdatedAt = NowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		if delErr := svc.files.Delete(ctx, key); delErr != nil {
			svc.logger.Error(fmt.Sprintf("deleting orphan avatar %s: %v", key, delErr), delErr)
		}
		return User{}, errors.Wrap(err, "saving avatar")
	}

	if oldKey.Valid && oldKey.String != "" {
		if err = svc.files.Delete(ctx, oldKey.String); err != nil {
			svc.logger.Error(fmt.Sprintf("deleting old avatar %s: %v", oldKey.String, err), err)
		}
	}
	return usr, nil
}
