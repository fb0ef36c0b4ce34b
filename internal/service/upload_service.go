package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/client"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	MaxUploadBytes = 10 * 1024 * 1024

	uploadFailedMessage = "Upload failed. Please try again."
)

type UploadState int

const (
	UploadIdle UploadState = iota
	UploadFileSelected
	UploadUploading
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadFileSelected:
		return "file-selected"
	case UploadUploading:
		return "uploading"
	default:
		return fmt.Sprintf("UploadState(%d)", int(s))
	}
}

// allowed maps accepted extensions to the sniffed type they must carry.
var allowedUploadTypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
}

type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader, progress client.ProgressFunc) (*model.Document, error)
}

// SelectedFile is a candidate for upload. Open is called once per submit.
type SelectedFile struct {
	Name        string
	Size        int64
	ContentType string
	// Pages is a local page count preview for PDFs, 0 when unknown.
	Pages int
	Open  func() (io.ReadCloser, error)
}

// FileFromBytes wraps in-memory content, sniffing its type.
func FileFromBytes(name string, data []byte) SelectedFile {
	return SelectedFile{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: mimetype.Detect(data).String(),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// UploadControl drives a single file through validation and upload. It
// holds at most one file and runs at most one upload at a time.
type UploadControl struct {
	uploader Uploader
	maxBytes int64

	mu       sync.Mutex
	state    UploadState
	selected *SelectedFile
	progress float64
	errMsg   string
}

func NewUploadControl(uploader Uploader, maxBytes int64) *UploadControl {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	return &UploadControl{uploader: uploader, maxBytes: maxBytes}
}

// Select validates the file at path and makes it the current selection.
func (u *UploadControl) Select(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return u.reject(fmt.Errorf("%w: %v", appErr.ErrNoFile, err), "File not found")
	}
	if info.IsDir() {
		return u.reject(appErr.ErrNoFile, "Please choose a file, not a directory")
	}
	file := SelectedFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	if file.Size <= u.maxBytes {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return u.reject(fmt.Errorf("%w: %v", appErr.ErrNoFile, err), "Could not read file")
		}
		file.ContentType = mt.String()
		if mt.Is("application/pdf") {
			file.Pages = countPDFPages(path)
		}
	}
	return u.SelectFile(file)
}

func (u *UploadControl) SelectFile(file SelectedFile) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == UploadUploading {
		return appErr.ErrUploadInProgress
	}
	if err := validateUpload(file, u.maxBytes); err != nil {
		u.errMsg = validationMessage(err, u.maxBytes)
		return err
	}
	u.selected = &file
	u.state = UploadFileSelected
	u.errMsg = ""
	u.progress = 0
	return nil
}

// Submit uploads the selected file. onComplete runs before the control
// goes back to idle.
func (u *UploadControl) Submit(ctx context.Context, progress client.ProgressFunc, onComplete func(model.Document)) (*model.Document, error) {
	u.mu.Lock()
	switch u.state {
	case UploadUploading:
		u.mu.Unlock()
		return nil, appErr.ErrUploadInProgress
	case UploadIdle:
		u.mu.Unlock()
		return nil, appErr.ErrNoFile
	}
	file := *u.selected
	u.state = UploadUploading
	u.progress = 0
	u.errMsg = ""
	u.mu.Unlock()

	logger := logutil.GetLogger(ctx).With(zap.String("filename", file.Name), zap.Int64("size", file.Size))
	doc, err := u.upload(ctx, file, progress)
	if err != nil {
		logger.Warn("upload failed", zap.Error(err))
		u.mu.Lock()
		u.state = UploadFileSelected
		u.errMsg = appErr.Message(err, uploadFailedMessage)
		u.mu.Unlock()
		return nil, err
	}
	logger.Info("upload finished", zap.String("doc_id", doc.DocID))
	if onComplete != nil {
		onComplete(*doc)
	}
	u.mu.Lock()
	u.state = UploadIdle
	u.selected = nil
	u.progress = 0
	u.mu.Unlock()
	return doc, nil
}

func (u *UploadControl) upload(ctx context.Context, file SelectedFile, progress client.ProgressFunc) (*model.Document, error) {
	if file.Open == nil {
		return nil, appErr.ErrNoFile
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()
	return u.uploader.Upload(ctx, file.Name, file.ContentType, rc, func(p float64) {
		u.mu.Lock()
		u.progress = p
		u.mu.Unlock()
		if progress != nil {
			progress(p)
		}
	})
}

func (u *UploadControl) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *UploadControl) Selected() (SelectedFile, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.selected == nil {
		return SelectedFile{}, false
	}
	return *u.selected, true
}

func (u *UploadControl) Progress() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.progress
}

// Error is the message to show next to the control, "" when there is none.
func (u *UploadControl) Error() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.errMsg
}

// Clear drops the selection. It has no effect while uploading.
func (u *UploadControl) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == UploadUploading {
		return
	}
	u.state = UploadIdle
	u.selected = nil
	u.errMsg = ""
	u.progress = 0
}

func (u *UploadControl) reject(err error, msg string) error {
	u.mu.Lock()
	u.errMsg = msg
	u.mu.Unlock()
	return err
}

func validateUpload(file SelectedFile, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(file.Name))
	want, ok := allowedUploadTypes[ext]
	if !ok {
		return fmt.Errorf("%w: %s", appErr.ErrInvalidFileType, file.Name)
	}
	if file.ContentType != "" && !matchesType(file.ContentType, want) {
		return fmt.Errorf("%w: %s looks like %s", appErr.ErrInvalidFileType, file.Name, file.ContentType)
	}
	if file.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes", appErr.ErrFileTooLarge, file.Size)
	}
	return nil
}

// matchesType accepts contentType when it is want or, for plain text, any
// format mimetype files under text/plain (json, csv, html...).
func matchesType(contentType, want string) bool {
	if mimetype.EqualsAny(contentType, want) {
		return true
	}
	if want != "text/plain" {
		return false
	}
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if strings.HasPrefix(base, "text/") {
		return true
	}
	for mt := mimetype.Lookup(base); mt != nil; mt = mt.Parent() {
		if mt.Is(want) {
			return true
		}
	}
	return false
}

func validationMessage(err error, maxBytes int64) string {
	switch {
	case errors.Is(err, appErr.ErrFileTooLarge):
		return fmt.Sprintf("File size must be less than %s", formatUploadLimit(maxBytes))
	case errors.Is(err, appErr.ErrInvalidFileType):
		return "Please upload a PDF or TXT file"
	default:
		return "Please choose a file"
	}
}

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	if bytes <= 0 {
		return "0MB"
	}
	value := bytes / mb
	if value <= 0 {
		value = 1
	}
	return fmt.Sprintf("%dMB", value)
}

// countPDFPages is best effort; the parser panics on some damaged files.
func countPDFPages(path string) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}
