package supabase

import (
	"context"
	"io"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/UkralStul/blog-service/internal/storage"
)

// Upload stores r at path in the cover bucket, replacing any existing object.
func (c *Client) Upload(ctx context.Context, path, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	upsert := true
	_, err := c.objects(token(ctx)).UploadFile(c.bucket, path, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	return decodeError(err)
}

// PublicURL returns the address a browser can load the object from.
func (c *Client) PublicURL(path string) string {
	return c.objects("").GetPublicUrl(c.bucket, path).SignedURL
}

var _ storage.Blobs = (*Client)(nil)
var _ storage.Posts = (*Client)(nil)
