package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Uploader puts bytes under an object name and returns an opaque handle.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, size int64, r io.Reader) (handle string, err error)
}

// URLResolver turns a handle into a publicly fetchable URL.
type URLResolver interface {
	DownloadURL(ctx context.Context, handle string) (string, error)
}

type ObjectStore interface {
	Uploader
	URLResolver
}

// ObjectName builds "<prefix>/<field>/<unixMillis>_<file>". The timestamp keeps
// repeated uploads to the same field from overwriting each other.
func ObjectName(prefix, field, fileName string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%d_%s", prefix, field, at.UnixMilli(), name)
}
