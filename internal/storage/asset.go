// Package storage uploads media files to an object store and removes them again.
package storage

import (
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Asset is a stored media object.
type Asset struct {
	// URL is where clients fetch the object.
	URL string `json:"url"`
	// PublicID is the object key used to delete it later.
	PublicID string `json:"publicId"`
	Size     int64  `json:"size"`
}

// objectKey derives a collision-free key that keeps the file extension.
func objectKey(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return path.Join("media", uuid.NewString()+ext)
}

func contentType(localPath string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// publicURL joins the configured base with the key. Without a base the key is
// addressed relative to the bucket.
func publicURL(baseURL, bucket, key string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return "/" + path.Join(bucket, key)
	}
	return baseURL + "/" + key
}

// removeLocal deletes the temporary upload regardless of the upload outcome.
func removeLocal(localPath string) {
	_ = os.Remove(localPath)
}
