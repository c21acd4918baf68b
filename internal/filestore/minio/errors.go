package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/koustreak/deckbuilder/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error.
//
// S3 error codes are looked at before the HTTP status: both NoSuchKey and
// NoSuchBucket arrive as 404, but only the first means a card has no art.
// A missing bucket is a deployment problem and reported as unavailable.
func mapError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	resp := miniogo.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		if resp.Key != "" {
			msg = fmt.Sprintf("object %s does not exist", resp.Key)
		}
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case "NoSuchBucket":
		return errs.Wrap(errs.ErrKindUnavailable, fmt.Sprintf("%s: bucket %s does not exist", msg, resp.BucketName), err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	case "InvalidObjectName", "KeyTooLongError":
		return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
	case "SlowDown":
		return errs.Wrap(errs.ErrKindUnavailable, msg, err)
	case "RequestTimeout":
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	case http.StatusBadRequest:
		return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
	case http.StatusServiceUnavailable:
		return errs.Wrap(errs.ErrKindUnavailable, msg, err)
	}

	// Transport failures: DNS, refused connections, TLS.
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
