// Package upload stores user photos resized to a square JPEG.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/semka95/natours/backend/domain"
)

// PhotoSize is the side of the stored square photo
const PhotoSize = 500

// Config stores upload configuration
type Config struct {
	UsersDir string `yaml:"users_dir" env:"UPLOAD_USERS_DIR"`
}

// PhotoStore resizes and writes user photos to a directory
type PhotoStore struct {
	dir string
	now func() time.Time
}

// NewPhotoStore creates photo store, dir is created when missing
func NewPhotoStore(dir string) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't create upload dir: %w", err)
	}

	return &PhotoStore{
		dir: dir,
		now: time.Now,
	}, nil
}

// SaveUserPhoto decodes image, crops it to PhotoSize square and stores it as
// user-<id>-<unix>.jpeg. It returns the file name.
func (s *PhotoStore) SaveUserPhoto(userID string, src io.Reader) (string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", domain.NewAppError(http.StatusBadRequest, "Not an image! Please upload only images.", domain.ErrBadParamInput)
	}

	img = imaging.Fill(img, PhotoSize, PhotoSize, imaging.Center, imaging.Lanczos)

	name := fmt.Sprintf("user-%s-%d.jpeg", userID, s.now().Unix())
	if err = imaging.Save(img, filepath.Join(s.dir, name), imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("can't save photo: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return name, nil
}

// SaveFormPhoto stores photo uploaded in multipart form field, it returns
// empty name when the request carries no file
func (s *PhotoStore) SaveFormPhoto(c echo.Context, field, userID string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", domain.NewAppError(http.StatusBadRequest, "Invalid photo upload", err)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("can't open uploaded photo: %w: %s", domain.ErrInternalServerError, err.Error())
	}
	defer f.Close()

	return s.SaveUserPhoto(userID, f)
}
