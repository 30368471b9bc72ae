package ports

import (
	"context"
	"io"
)

// FileStorage — объектное хранилище для архива событий
type FileStorage interface {
	UploadFile(ctx context.Context, objectKey string, content io.Reader, contentType string) (string, error)
}
