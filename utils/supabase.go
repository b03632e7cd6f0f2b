package utils

import (
	"bytes"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// AssetMirror copies generated certificates and uploaded templates to a
// Supabase Storage bucket so they can be served publicly.
type AssetMirror struct {
	client  *storage.Client
	baseURL string
	bucket  string
}

func NewAssetMirror(supabaseURL, supabaseKey, bucket string) *AssetMirror {
	supabaseURL = strings.TrimRight(supabaseURL, "/")
	return &AssetMirror{
		client:  storage.NewClient(supabaseURL+"/storage/v1", supabaseKey, nil),
		baseURL: supabaseURL,
		bucket:  bucket,
	}
}

// Upload stores data at objectPath, replacing an existing object, and returns
// its public URL.
func (m *AssetMirror) Upload(objectPath string, data []byte, contentType string) (string, error) {
	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := m.client.UploadFile(m.bucket, objectPath, bytes.NewReader(data), options); err != nil {
		// Older storage servers ignore the upsert flag on POST.
		if _, uerr := m.client.UpdateFile(m.bucket, objectPath, bytes.NewReader(data), options); uerr != nil {
			return "", fmt.Errorf("upload %s: %w", objectPath, err)
		}
	}

	return m.PublicURL(objectPath), nil
}

func (m *AssetMirror) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", m.baseURL, m.bucket, objectPath)
}
