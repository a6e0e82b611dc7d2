package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase talks to a Supabase Storage bucket over its REST API.
type Supabase struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewSupabase returns a client for bucket at projectURL using the service key.
// A nil client gets a default with a 30s timeout.
func NewSupabase(projectURL, serviceKey, bucket string, client *http.Client) *Supabase {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL: strings.TrimRight(projectURL, "/"),
		key:     serviceKey,
		bucket:  bucket,
		client:  client,
	}
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (s *Supabase) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, escapePath(path))
}

func (s *Supabase) do(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if resp.StatusCode == http.StatusConflict || bytes.Contains(body, []byte("Duplicate")) {
			return ErrObjectExists
		}
		return fmt.Errorf("storage status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Upload creates the object. POST never replaces an existing object.
func (s *Supabase) Upload(ctx context.Context, path, contentType string, data []byte) error {
	if err := CheckObjectPath(path); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	req.Header.Set("Cache-Control", "max-age=3600")
	return s.do(req)
}

func (s *Supabase) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, escapePath(path))
}

// Remove deletes objects in one bulk request.
func (s *Supabase) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	for _, p := range paths {
		if err := CheckObjectPath(p); err != nil {
			return err
		}
	}
	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("encode remove request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, s.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build remove request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}
