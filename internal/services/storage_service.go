package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const signedURLTTL = time.Hour

// AttachmentStore keeps program attachments outside the database.
type AttachmentStore interface {
	Upload(ctx context.Context, body io.Reader, objectName string) (string, error)
	Delete(ctx context.Context, fileURL string) error
	SignedURL(ctx context.Context, fileURL string) (string, error)
}

// SupabaseStorage talks to the Supabase storage REST API.
type SupabaseStorage struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStorage(baseURL, bucket, serviceKey string) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SupabaseStorage) Upload(ctx context.Context, body io.Reader, objectName string) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	objectName = strings.TrimLeft(objectName, "/")
	headers := map[string]string{
		"x-upsert":     "true",
		"Content-Type": http.DetectContentType(content),
	}
	resp, err := s.do(ctx, http.MethodPost, s.objectEndpoint(objectName), bytes.NewReader(content), headers)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	resp.Body.Close()

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectName), nil
}

// Delete treats a missing object as already deleted.
func (s *SupabaseStorage) Delete(ctx context.Context, fileURL string) error {
	objectName, err := s.objectName(fileURL)
	if err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodDelete, s.objectEndpoint(objectName), nil, nil)
	if err != nil {
		var statusErr *storageStatusError
		if errors.As(err, &statusErr) && statusErr.status == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete attachment: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (s *SupabaseStorage) SignedURL(ctx context.Context, fileURL string) (string, error) {
	objectName, err := s.objectName(fileURL)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]int{"expiresIn": int(signedURLTTL / time.Second)})
	if err != nil {
		return "", fmt.Errorf("encode sign request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, s.bucket, objectName)
	resp, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("sign attachment url: %w", err)
	}
	defer resp.Body.Close()

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if signed.SignedURL == "" {
		return "", errors.New("sign response has no url")
	}
	return s.baseURL + "/storage/v1" + signed.SignedURL, nil
}

type storageStatusError struct {
	status int
	body   string
}

func (e *storageStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// do sends an authenticated request and turns non-2xx answers into storageStatusError.
// The caller closes the body of a successful response.
func (s *SupabaseStorage) do(
	ctx context.Context,
	method string,
	endpoint string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &storageStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(text))}
	}
	return resp, nil
}

func (s *SupabaseStorage) objectEndpoint(objectName string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectName)
}

func (s *SupabaseStorage) objectName(fileURL string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse attachment url: %w", err)
	}

	for _, prefix := range []string{
		"/storage/v1/object/public/" + s.bucket + "/",
		"/storage/v1/object/" + s.bucket + "/",
	} {
		if strings.HasPrefix(parsed.Path, prefix) {
			return path.Clean(strings.TrimPrefix(parsed.Path, prefix)), nil
		}
	}
	return "", fmt.Errorf("attachment url %q is outside bucket %s", fileURL, s.bucket)
}
