package core

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// ReadImageFile loads an image from disk for the terminal surfaces. The type
// comes from the extension; SelectFile sniffs the bytes when it is unknown.
// A maxSize of zero disables the size check.
func ReadImageFile(path string, maxSize int64) (*RawFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open image: %s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return &RawFile{
		Name:     filepath.Base(path),
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	}, nil
}
