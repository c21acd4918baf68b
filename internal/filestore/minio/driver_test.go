package minio

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/koustreak/deckbuilder/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *filestore.Config {
	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
	cfg.Region = "us-east-1"
	return cfg
}

func TestNew_ValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Bucket = ""

	_, err := New(cfg)
	assert.True(t, errs.IsConfig(err))
}

func TestNew_InvalidEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Endpoint = "http://localhost:9000/with/path"

	_, err := New(cfg)
	assert.True(t, errs.IsConfig(err))
}

func TestPresignGetURL_Offline(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, filestore.DefaultBucket, d.Bucket())

	raw, err := d.PresignGetURL(context.Background(), "cards/17.png", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/card-art/cards/17.png", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignGetURL_EmptyKey(t *testing.T) {
	d, err := New(testConfig())
	require.NoError(t, err)

	_, err = d.PresignGetURL(context.Background(), "", time.Minute)
	assert.True(t, errs.IsNotFound(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"404", miniogo.ErrorResponse{StatusCode: http.StatusNotFound}, errs.ErrKindNotFound},
		{"403", miniogo.ErrorResponse{StatusCode: http.StatusForbidden}, errs.ErrKindPermissionDenied},
		{"400", miniogo.ErrorResponse{StatusCode: http.StatusBadRequest}, errs.ErrKindInvalidInput},
		{"no such key", miniogo.ErrorResponse{Code: "NoSuchKey"}, errs.ErrKindNotFound},
		{"signature", miniogo.ErrorResponse{Code: "SignatureDoesNotMatch"}, errs.ErrKindPermissionDenied},
		{"slow down", miniogo.ErrorResponse{StatusCode: http.StatusServiceUnavailable, Code: "SlowDown"}, errs.ErrKindUnavailable},
		{"request timeout", miniogo.ErrorResponse{StatusCode: http.StatusBadRequest, Code: "RequestTimeout"}, errs.ErrKindTimeout},
		{"missing bucket", miniogo.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchBucket"}, errs.ErrKindUnavailable},
		{"503", miniogo.ErrorResponse{StatusCode: http.StatusServiceUnavailable}, errs.ErrKindUnavailable},
		{"network", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, errs.ErrKindTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(mapError(tt.err, "op")))
		})
	}
}

func TestMapError_MissingCardArt(t *testing.T) {
	err := mapError(miniogo.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Code:       "NoSuchKey",
		BucketName: "card-art",
		Key:        "cards/17.png",
	}, "failed to stat object")

	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "object cards/17.png does not exist")
}

func TestMapError_MissingBucketIsNotAMissingImage(t *testing.T) {
	err := mapError(miniogo.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Code:       "NoSuchBucket",
		BucketName: "card-art",
	}, "failed to stat object")

	assert.False(t, errs.IsNotFound(err))
	assert.True(t, errs.IsUnavailable(err))
	assert.Contains(t, err.Error(), "bucket card-art does not exist")
}
