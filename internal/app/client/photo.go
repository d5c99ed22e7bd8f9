package client

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slog"
)

const maxPhotoSize = 5 << 20

// PhotoResolver превращает ссылку на фото в значение поля photoUrl
type PhotoResolver interface {
	Resolve(ref string) string
}

// FileResolver читает локальный файл и отдает data URL.
// Ссылки, которые не являются файлом, отправляются как есть.
type FileResolver struct {
	log *slog.Logger
}

func NewFileResolver(log *slog.Logger) *FileResolver {
	return &FileResolver{log: log.With(slog.String("component", "photo_resolver"))}
}

func (r *FileResolver) Resolve(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.Contains(ref, "://") {
		return ref
	}

	path := strings.TrimPrefix(ref, "file:")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ref
	}
	if info.Size() > maxPhotoSize {
		r.log.Warn("photo is too large, sending reference", "path", path, "size", info.Size())
		return ref
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("read photo", "path", path, "error", err)
		return ref
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
