package supabase

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"livebook-backend/internal/shared/storage/object"
	"livebook-backend/internal/shared/util"
)

// Store implements ObjectStore using Supabase Storage.
type Store struct {
	client *storage_go.Client
	bucket string
}

// New creates a Supabase Storage backed object store. projectURL is the
// project base URL (https://<ref>.supabase.co); serviceKey must be a
// service-role key since uploads bypass row-level security.
func New(projectURL, serviceKey, bucket string) (object.ObjectStore, error) {
	if strings.TrimSpace(projectURL) == "" || strings.TrimSpace(serviceKey) == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}
	storageURL := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &Store{
		client: storage_go.NewClient(storageURL, serviceKey, nil),
		bucket: bucket,
	}, nil
}

// Save uploads the reader contents under the user's namespace.
func (s *Store) Save(ctx context.Context, userId string, fileName string, r io.Reader) (string, int64, string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}

	storageUserKey := util.HashUserKey(userId)

	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	prefix := randomID()
	finalName := fmt.Sprintf("%s_%s", prefix, sanitizedName)
	storageKey := path.Join(storageUserKey, finalName)

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", fmt.Errorf("read sniff: %w", readErr)
	}

	mimeType := http.DetectContentType(sniff[:n])

	body := io.MultiReader(bytes.NewReader(sniff[:n]), r)
	counter := &countingReader{r: body}

	upsert := true
	_, err = s.client.UploadFile(s.bucket, storageKey, counter, storage_go.FileOptions{
		ContentType: &mimeType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("supabase upload bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}

	return storageKey, counter.n, mimeType, nil
}

// SaveWithKey uploads data to a specific storage key.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	counter := &countingReader{r: r}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storageKey, counter, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return 0, fmt.Errorf("supabase upload bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return counter.n, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, storageKey)
	if err != nil {
		return nil, fmt.Errorf("supabase download bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PublicURL asks Supabase for the public URL of a stored object.
func (s *Store) PublicURL(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp := s.client.GetPublicUrl(s.bucket, storageKey)
	if strings.TrimSpace(resp.SignedURL) == "" {
		return "", fmt.Errorf("supabase public url empty bucket=%s key=%s", s.bucket, storageKey)
	}
	return resp.SignedURL, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

var _ object.ObjectStore = (*Store)(nil)
