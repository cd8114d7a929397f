// Package storage provides image upload and deletion backed by Cloud
// Storage for Firebase.
//
// Uploaded objects are placed under an environment-scoped prefix with a
// generated name, and are addressed afterwards by their public download
// URL rather than by object path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/monibu1548/JKFirebaseSDK/internal"
)

const downloadHost = "firebasestorage.googleapis.com"

// Client is the interface for the Firebase Storage service.
type Client struct {
	client *gcs.Client
	bucket string
	env    string
}

// NewClient creates a new instance of the Firebase Storage Client.
//
// This function can only be invoked from within the SDK. Client applications
// should access the Storage service through the App.
func NewClient(ctx context.Context, conf *internal.StorageConfig) (*Client, error) {
	if conf.Bucket == "" {
		return nil, errors.New("storage bucket name not specified")
	}
	env := conf.Environment
	if env == "" {
		env = internal.DefaultEnvironment
	}

	client, err := gcs.NewClient(ctx, conf.Opts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, bucket: conf.Bucket, env: env}, nil
}

// DefaultBucket returns a handle to the configured Cloud Storage bucket.
func (c *Client) DefaultBucket() (*gcs.BucketHandle, error) {
	return c.Bucket(c.bucket)
}

// Bucket returns a handle to the specified Cloud Storage bucket.
func (c *Client) Bucket(name string) (*gcs.BucketHandle, error) {
	if name == "" {
		return nil, errors.New("bucket name not specified")
	}
	return c.client.Bucket(name), nil
}

// UploadImage stores the image read from r under the given logical path and
// returns its public download URL.
//
// The object is written to "environment/{env}/{path}/{uuid}.{ext}" where ext
// is derived from the content type. The caller owns r and must close it if
// applicable.
func (c *Client) UploadImage(ctx context.Context, imagePath string, r io.Reader, contentType string) (string, error) {
	if r == nil {
		return "", internal.Errorf(internal.InvalidArgument, "image reader must not be nil")
	}
	ext, err := imageExtension(contentType)
	if err != nil {
		return "", err
	}

	object := c.objectName(imagePath, ext)
	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		// Best effort removal of the partially written object.
		c.client.Bucket(c.bucket).Object(object).Delete(ctx)
		return "", err
	}
	if err := w.Close(); err != nil {
		c.client.Bucket(c.bucket).Object(object).Delete(ctx)
		return "", err
	}
	return c.downloadURL(object), nil
}

// Delete removes the object identified by the given download URL.
func (c *Client) Delete(ctx context.Context, downloadURL string) error {
	object, err := c.objectFromURL(downloadURL)
	if err != nil {
		return err
	}
	return c.client.Bucket(c.bucket).Object(object).Delete(ctx)
}

// Close closes the underlying Cloud Storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) objectName(imagePath, ext string) string {
	name := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	segs := []string{"environment", c.env}
	for _, seg := range strings.Split(imagePath, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	segs = append(segs, name)
	return path.Join(segs...)
}

func (c *Client) downloadURL(object string) string {
	return fmt.Sprintf("https://%s/v0/b/%s/o/%s?alt=media",
		downloadHost, c.bucket, url.PathEscape(object))
}

func (c *Client) objectFromURL(downloadURL string) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", internal.Errorf(internal.InvalidArgument, "invalid download URL: %v", err)
	}
	prefix := fmt.Sprintf("/v0/b/%s/o/", c.bucket)
	if parsed.Host != downloadHost || !strings.HasPrefix(parsed.EscapedPath(), prefix) {
		return "", internal.Errorf(internal.InvalidArgument, "download URL %q does not address bucket %q", downloadURL, c.bucket)
	}
	escaped := strings.TrimPrefix(parsed.EscapedPath(), prefix)
	object, err := url.PathUnescape(escaped)
	if err != nil {
		return "", internal.Errorf(internal.InvalidArgument, "invalid download URL: %v", err)
	}
	if object == "" {
		return "", internal.Errorf(internal.InvalidArgument, "download URL %q has no object path", downloadURL)
	}
	return object, nil
}

func imageExtension(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	default:
		return "", internal.Errorf(internal.InvalidArgument, "unsupported image content type %q", contentType)
	}
}
