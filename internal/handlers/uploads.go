package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/config"
)

const multipartMemory = 32 << 20

// multipartUpload collects the files of one multipart request in a temporary
// directory. Cleanup removes whatever the media store did not already consume.
type multipartUpload struct {
	r     *http.Request
	dir   string
	paths []string
}

func parseMultipart(w http.ResponseWriter, r *http.Request, cfg config.UploadConfig) (*multipartUpload, error) {
	if cfg.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperr.Validation("invalid multipart form")
	}
	return &multipartUpload{r: r, dir: cfg.TempDir}, nil
}

// value returns the trimmed form field.
func (u *multipartUpload) value(name string) string {
	return strings.TrimSpace(u.r.FormValue(name))
}

// file saves the named file field to disk and returns its path, or "" when the
// field was not sent.
func (u *multipartUpload) file(name string) (string, error) {
	src, header, err := u.r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperr.Validation("invalid %s file", name)
	}
	defer src.Close()

	dst, err := os.CreateTemp(u.dir, "vidtube-upload-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return "", apperr.Internal(err, "failed to store upload")
	}
	u.paths = append(u.paths, dst.Name())

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", apperr.Internal(err, "failed to store upload")
	}
	if err := dst.Close(); err != nil {
		return "", apperr.Internal(err, "failed to store upload")
	}
	return dst.Name(), nil
}

func (u *multipartUpload) cleanup() {
	for _, path := range u.paths {
		_ = os.Remove(path)
	}
	if u.r.MultipartForm != nil {
		_ = u.r.MultipartForm.RemoveAll()
	}
}
