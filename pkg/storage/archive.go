// Package storage provides the invoice archive: opaque documents addressed by key.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// DefaultContentType is used when an upload does not declare one.
const DefaultContentType = "application/pdf"

// Object is a retrieved document. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Archive stores and streams invoice documents.
type Archive interface {
	// Store uploads body under key; an existing object is overwritten.
	Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Retrieve(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
