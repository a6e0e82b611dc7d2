package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Local keeps images on disk below root. The API serves root under baseURL.
type Local struct {
	root    string
	baseURL string
	log     logrus.FieldLogger
}

// NewLocal creates root if needed.
func NewLocal(root, baseURL string, log logrus.FieldLogger) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory %s: %w", root, err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/"), log: log}, nil
}

// resolve maps an object path to a file below root. Paths that would be
// rewritten by cleaning are rejected rather than normalized.
func (l *Local) resolve(path string) (string, error) {
	if err := CheckObjectPath(path); err != nil {
		return "", err
	}
	full := filepath.Join(l.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return full, nil
}

func (l *Local) Upload(ctx context.Context, path, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return fmt.Errorf("close object: %w", err)
	}
	return nil
}

func (l *Local) PublicURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return l.baseURL + "/" + strings.Join(segments, "/")
}

// Remove deletes every path it can. Missing objects are ignored.
func (l *Local) Remove(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		full, err := l.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove object %s: %w", p, err))
			continue
		}
		l.log.WithField("path", p).Debug("removed image object")
	}
	return errors.Join(errs...)
}
