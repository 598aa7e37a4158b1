package core

import "context"

// ClassificationRequest wraps exactly one selected file. Build it with
// NewClassificationRequest; a request is never created without a file.
type ClassificationRequest struct {
	file *SelectedFile
}

// NewClassificationRequest returns ErrNoFileSelected when file is nil.
func NewClassificationRequest(file *SelectedFile) (ClassificationRequest, error) {
	if file == nil {
		return ClassificationRequest{}, ErrNoFileSelected
	}
	return ClassificationRequest{file: file}, nil
}

// FileName is the name sent with the multipart part.
func (r ClassificationRequest) FileName() string { return r.file.Name }

// MIMEType is the content type of the image part.
func (r ClassificationRequest) MIMEType() string { return r.file.MIMEType }

// Data is the image payload.
func (r ClassificationRequest) Data() []byte { return r.file.Data }

// Classifier is the external classification collaborator.
//
// Classify returns the ranked predictions or an error; a *ServiceError when
// the service rejected the image and a *TransportError otherwise.
type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (ClassificationResult, error)
}

// DiseaseCatalog lists the diseases the collaborator can recognise.
type DiseaseCatalog interface {
	Diseases(ctx context.Context) ([]string, error)
}
