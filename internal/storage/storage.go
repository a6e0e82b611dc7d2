// Package storage stores uploaded event images and issues their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/intermernet/matchday/internal/apperr"
)

// MaxImageSize is the largest accepted upload, 5 MiB.
const MaxImageSize = 5 << 20

// EventsFolder is the per-owner folder event images live under.
const EventsFolder = "events"

// ErrObjectExists is returned by Upload when the path is already taken.
var ErrObjectExists = errors.New("object already exists")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// ImageStore is an object store for event images. Upload never overwrites an
// existing object.
type ImageStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	PublicURL(path string) string
	Remove(ctx context.Context, paths ...string) error
}

// CheckImage enforces the upload constraints. It runs before any storage
// call is made.
func CheckImage(size int64, contentType string) error {
	if size <= 0 {
		return apperr.Validation("Image file is required")
	}
	if size > MaxImageSize {
		return apperr.Validation("Image must be up to 5MB")
	}
	if !allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return apperr.Validation("Only JPG, PNG, and WEBP images are allowed")
	}
	return nil
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-_] with '-'
// and lowercases the result.
func SanitizeFilename(name string) string {
	return strings.ToLower(unsafeFilenameChars.ReplaceAllString(name, "-"))
}

// ImagePath derives the object path {ownerID}/events/{unixMillis}-{name}.
func ImagePath(ownerID string, uploadedAt time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/%d-%s", ownerID, EventsFolder, uploadedAt.UnixMilli(), SanitizeFilename(filename))
}

// CheckObjectPath rejects object paths that are empty, absolute, not in
// canonical form, or carry "." or ".." segments.
func CheckObjectPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || path.Clean(p) != p {
		return fmt.Errorf("invalid object path %q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("invalid object path %q", p)
		}
	}
	return nil
}

// OwnsPath reports whether p is a canonical object path inside the owner's
// events folder.
func OwnsPath(ownerID, p string) bool {
	if ownerID == "" || CheckObjectPath(ownerID) != nil || strings.Contains(ownerID, "/") {
		return false
	}
	if CheckObjectPath(p) != nil {
		return false
	}
	prefix := ownerID + "/" + EventsFolder + "/"
	return len(p) > len(prefix) && strings.HasPrefix(p, prefix)
}
