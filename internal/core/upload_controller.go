package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyFile is returned by SelectFile when no file, or an empty one, was picked.
	ErrEmptyFile = errors.New("no file provided")

	// ErrFileTooLarge is returned by surfaces that cap the image size.
	ErrFileTooLarge = errors.New("file too large")
)

// RawFile is what a file picker hands over: the bytes, the original name and
// the type the platform reported (possibly empty).
type RawFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// SelectedFile is the normalized file held between selection and submit.
type SelectedFile struct {
	Name     string
	MIMEType string
	Data     []byte
	Preview  *Preview
}

// Size returns the payload length in bytes.
func (f *SelectedFile) Size() int { return len(f.Data) }

// FileInfo is the render-safe view of a SelectedFile.
type FileInfo struct {
	Name         string `json:"name" yaml:"name"`
	MIMEType     string `json:"mime_type" yaml:"mime_type"`
	Size         int    `json:"size" yaml:"size"`
	PreviewToken string `json:"preview_token,omitempty" yaml:"preview_token,omitempty"`
}

// Info returns the metadata of f without the payload.
func (f *SelectedFile) Info() FileInfo {
	return FileInfo{
		Name:         f.Name,
		MIMEType:     f.MIMEType,
		Size:         f.Size(),
		PreviewToken: f.Preview.Token(),
	}
}

// Summary renders the type and size line shown under the preview,
// e.g. "image/png, 2.0 KB".
func (f FileInfo) Summary() string {
	return f.MIMEType + ", " + FormatSize(f.Size)
}

// FormatSize renders a byte count in B, KB or MB.
func FormatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// UploadController owns the selected file and its preview resource.
// It does not look at image content; the classifier decides what it accepts.
type UploadController struct {
	previews PreviewStore
	onSelect func()

	mu       sync.Mutex
	selected *SelectedFile
	closed   bool
}

// NewUploadController creates a controller. onSelect, if non-nil, runs after
// every successful selection so the owner can start a fresh submission cycle.
func NewUploadController(previews PreviewStore, onSelect func()) *UploadController {
	return &UploadController{previews: previews, onSelect: onSelect}
}

// SelectFile replaces the current selection with raw. An absent or empty
// file is rejected with ErrEmptyFile and leaves the current selection alone.
// The previous preview is released before the new one is acquired.
func (c *UploadController) SelectFile(raw *RawFile) error {
	if raw == nil || len(raw.Data) == 0 {
		return ErrEmptyFile
	}

	mimeType := raw.MIMEType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(raw.Data).String()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}

	if c.selected != nil {
		c.selected.Preview.Release()
		c.selected = nil
	}

	preview, err := c.previews.Acquire(raw.Data, mimeType)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("acquire preview: %w", err)
	}

	c.selected = &SelectedFile{
		Name:     raw.Name,
		MIMEType: mimeType,
		Data:     raw.Data,
		Preview:  preview,
	}
	c.mu.Unlock()

	if c.onSelect != nil {
		c.onSelect()
	}
	return nil
}

// SelectedFile returns the current selection, if any.
func (c *UploadController) SelectedFile() (*SelectedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != nil
}

// Close releases the current preview. Further selections fail.
func (c *UploadController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != nil {
		c.selected.Preview.Release()
		c.selected = nil
	}
	c.closed = true
}
