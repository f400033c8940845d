// Package gcs stores menu item photos in a Cloud Storage bucket through the
// JSON API.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/gcp"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const (
	pingTimeout       = 5 * time.Second
	defaultPublicBase = "https://storage.googleapis.com"
	fallbackMediaType = "application/octet-stream"
)

// ErrObjectNotFound is returned when the object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

var errNotInitialized = errors.New("gcs client not initialized")

// ObjectStore is the storage surface used by the media service.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (*Object, error)
	Delete(ctx context.Context, object string) error
	PublicURL(object string) string
}

// Object is the metadata kept after an upload.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Size        uint64
	Generation  int64
}

type Client struct {
	objects    *storage.ObjectsService
	bucket     string
	publicBase string
}

// NewClient connects to the bucket named in cfg and checks it is listable.
// opts are appended after the credential options, which lets tests point the
// client at a fake endpoint.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	svc, err := storage.NewService(ctx, gcp.ClientOptions(gcpCfg, append([]option.ClientOption{
		option.WithScopes(storage.DevstorageReadWriteScope),
	}, opts...)...)...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	c := &Client{
		objects:    svc.Objects,
		bucket:     bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	return c, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping lists at most one object to prove the credentials can read the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("items/name").Context(ctx).Do(); err != nil {
		return wrap("list", c.bucket, err)
	}
	return nil
}

// Upload writes body to object, replacing any existing object.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (*Object, error) {
	if c == nil || c.objects == nil {
		return nil, errNotInitialized
	}
	name := cleanName(object)
	if name == "" {
		return nil, errors.New("object name is required")
	}
	if contentType == "" {
		contentType = fallbackMediaType
	}

	obj, err := c.objects.
		Insert(c.bucket, &storage.Object{Name: name, ContentType: contentType}).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrap("upload", name, err)
	}
	return &Object{
		Bucket:      obj.Bucket,
		Name:        obj.Name,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Generation:  obj.Generation,
	}, nil
}

// Delete removes object. A missing object yields ErrObjectNotFound.
func (c *Client) Delete(ctx context.Context, object string) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	name := cleanName(object)
	if name == "" {
		return errors.New("object name is required")
	}
	if err := c.objects.Delete(c.bucket, name).Context(ctx).Do(); err != nil {
		return wrap("delete", name, err)
	}
	return nil
}

// PublicURL returns the public address of object.
func (c *Client) PublicURL(object string) string {
	base := c.publicBase
	if base == "" {
		base = defaultPublicBase
	}
	segments := strings.Split(cleanName(object), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + c.bucket + "/" + strings.Join(segments, "/")
}

func (c *Client) Close() error { return nil }

func cleanName(object string) string {
	return strings.TrimLeft(strings.TrimSpace(object), "/")
}

func wrap(op, target string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("gcs %s %s: %w", op, target, ErrObjectNotFound)
	}
	return fmt.Errorf("gcs %s %s: %w", op, target, err)
}
