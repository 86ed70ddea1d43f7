package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

	// sniffBytes is how much of an upload is inspected for its real type.
	sniffBytes = 3072
)

// Upload outcomes reported to the Recorder.
const (
	UploadRejected = "rejected"
	UploadStored   = "stored"
	UploadFailed   = "failed"
)

// allowedTypes maps each accepted extension to the only content type it may declare.
var allowedTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
}

type DocumentOptions struct {
	MaxBytes     int64
	SniffContent bool
}

type DocumentService struct {
	projects ProjectStore
	users    UserStore
	files    DocumentStorage
	recorder Recorder
	opts     DocumentOptions
	now      func() time.Time
	newID    func() string
}

func NewDocumentService(projects ProjectStore, users UserStore, files DocumentStorage, recorder Recorder, opts DocumentOptions) *DocumentService {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxUploadBytes
	}
	return &DocumentService{
		projects: projects,
		users:    users,
		files:    files,
		recorder: recorderOrNop(recorder),
		opts:     opts,
		now:      time.Now,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Upload is one file taken from a multipart request. Size is the declared part size.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type DownloadTarget struct {
	Path         string
	OriginalName string
}

// SizeLimitMessage is the client-facing message for an upload over the limit. Limits
// under 1 MiB are stated in bytes.
func SizeLimitMessage(maxBytes int64) string {
	const mib = 1 << 20
	switch {
	case maxBytes < mib:
		return fmt.Sprintf("File size exceeds %d byte limit", maxBytes)
	case maxBytes%mib == 0:
		return fmt.Sprintf("File size exceeds %dMB limit", maxBytes/mib)
	default:
		return fmt.Sprintf("File size exceeds %.1fMB limit", float64(maxBytes)/mib)
	}
}

func (s *DocumentService) MaxBytes() int64 {
	return s.opts.MaxBytes
}

func (s *DocumentService) reject(message string) error {
	s.recorder.RecordDocumentUpload(UploadRejected)
	return models.NewValidationError(message)
}

func allowedExtensions() string {
	return ".pdf, .docx"
}

// UploadDocument validates up and stores it under a generated name, then records it on the
// project. Nothing is written to disk until the project, the caller's right to upload and
// the file's declared type and size have all been checked.
func (s *DocumentService) UploadDocument(ctx context.Context, caller policy.Caller, projectID string, up Upload) (*models.ProjectView, error) {
	// 1. Project and permission
	id, err := parseID(projectID, msgInvalidProjectID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}
	if err := authorize(s.recorder, policy.UploadDocument, caller, project); err != nil {
		return nil, err
	}

	// 2. Extension
	ext := strings.ToLower(filepath.Ext(up.Filename))
	wantType, ok := allowedTypes[ext]
	if !ok {
		return nil, s.reject("Invalid file type. Only " + allowedExtensions() + " are allowed.")
	}

	// 3. Declared content type must be allowed and agree with the extension
	declared, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || strings.ToLower(declared) != wantType {
		return nil, s.reject("Invalid MIME type. File type does not match content.")
	}

	// 4. Size
	if up.Size > s.opts.MaxBytes {
		return nil, s.reject(SizeLimitMessage(s.opts.MaxBytes))
	}

	// 5. Content
	body := up.Body
	if s.opts.SniffContent {
		head := make([]byte, sniffBytes)
		n, err := io.ReadFull(body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			s.recorder.RecordDocumentUpload(UploadFailed)
			return nil, fmt.Errorf("read upload: %w", err)
		}
		head = head[:n]
		if !matchesType(mimetype.Detect(head), wantType) {
			return nil, s.reject("File content does not match declared type")
		}
		body = io.MultiReader(bytes.NewReader(head), body)
	}

	// 6. Store under a generated name
	filename := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), s.newID()[:8], ext)
	if _, err := s.files.Save(filename, body, s.opts.MaxBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.reject(SizeLimitMessage(s.opts.MaxBytes))
		}
		s.recorder.RecordDocumentUpload(UploadFailed)
		return nil, err
	}

	// 7. Record metadata, removing the file if that fails
	doc := models.Document{
		Filename:     filename,
		OriginalName: filepath.Base(up.Filename),
		UploadDate:   s.now().UTC(),
	}
	updated, err := s.projects.AddDocument(ctx, project.ID, doc)
	if err != nil || updated == nil {
		if rmErr := s.files.Remove(filename); rmErr != nil {
			slog.ErrorContext(ctx, "failed to remove orphaned upload",
				slog.String("filename", filename),
				slog.Any("error", rmErr),
			)
		}
		s.recorder.RecordDocumentUpload(UploadFailed)
		if err != nil {
			return nil, err
		}
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}

	s.recorder.RecordDocumentUpload(UploadStored)
	slog.InfoContext(ctx, "document uploaded",
		slog.String("project_id", project.ID.Hex()),
		slog.String("filename", filename),
	)
	return populateOne(ctx, s.users, updated)
}

// matchesType reports whether detected is want or one of its ancestors is.
func matchesType(detected *mimetype.MIME, want string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// OpenDocument resolves a stored document for download after checking the caller may read it.
func (s *DocumentService) OpenDocument(ctx context.Context, caller policy.Caller, projectID, filename string) (*DownloadTarget, error) {
	id, err := parseID(projectID, msgInvalidProjectID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, models.NewNotFoundError(msgProjectNotFound)
	}

	doc, ok := project.FindDocument(filename)
	if !ok {
		return nil, models.NewNotFoundError("Document not found")
	}
	if err := authorize(s.recorder, policy.DownloadDocument, caller, project); err != nil {
		return nil, err
	}

	path, err := s.files.Path(doc.Filename)
	if err != nil {
		return nil, models.NewNotFoundError("File not found on server")
	}
	exists, err := s.files.Exists(doc.Filename)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("File not found on server")
	}
	return &DownloadTarget{Path: path, OriginalName: doc.OriginalName}, nil
}
