// internal/documents/resolver.go
package documents

import (
	"context"
	"fmt"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusMissing Status = "missing"
	StatusUnknown Status = "unknown"
)

// Item is the state of one required document type.
type Item struct {
	Type   string `json:"type"`
	Status Status `json:"status"`
	Files  []File `json:"files,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Checklist lists every configured document type in configured order.
type Checklist struct {
	StudentName string `json:"studentName"`
	FolderID    string `json:"folderId,omitempty"`
	Items       []Item `json:"items"`
}

// Complete reports whether every type is present.
func (c Checklist) Complete() bool {
	for _, it := range c.Items {
		if it.Status != StatusPresent {
			return false
		}
	}
	return len(c.Items) > 0
}

// Counts tallies items by status.
func (c Checklist) Counts() map[Status]int {
	out := map[Status]int{StatusPresent: 0, StatusMissing: 0, StatusUnknown: 0}
	for _, it := range c.Items {
		out[it.Status]++
	}
	return out
}

type Resolver struct {
	files          FileStore
	types          []string
	rootFolder     string
	maxConcurrency int
	logger         logger.Logger
}

// NewResolver builds a resolver for the given document types. A
// maxConcurrency of zero or less allows one in-flight check per type.
func NewResolver(files FileStore, types []string, rootFolder string, maxConcurrency int, log logger.Logger) *Resolver {
	if maxConcurrency <= 0 {
		maxConcurrency = len(types)
	}
	return &Resolver{
		files:          files,
		types:          append([]string(nil), types...),
		rootFolder:     rootFolder,
		maxConcurrency: maxConcurrency,
		logger:         log.WithFields(map[string]interface{}{"component": "document-resolver"}),
	}
}

func (r *Resolver) Types() []string {
	return append([]string(nil), r.types...)
}

// Checklist never fails as a whole. A missing applicant folder marks every
// type missing, a failed folder lookup marks every type unknown, and a
// failed per-type check marks only that type unknown.
func (r *Resolver) Checklist(ctx context.Context, studentName string) Checklist {
	out := Checklist{StudentName: studentName}

	folderID, found, err := r.applicantFolder(ctx, studentName)
	switch {
	case err != nil:
		stdErr := apperrors.NewDocumentCheckFailedError(studentName, err)
		r.logger.Warn("applicant folder lookup failed", map[string]interface{}{
			"studentName": studentName,
			"code":        stdErr.Code,
			"error":       err,
		})
		out.Items = r.uniform(StatusUnknown, err.Error())
		return out
	case !found:
		out.Items = r.uniform(StatusMissing, "")
		return out
	}
	out.FolderID = folderID

	items := make([]Item, len(r.types))
	var g errgroup.Group
	g.SetLimit(r.maxConcurrency)
	for i, docType := range r.types {
		g.Go(func() error {
			items[i] = r.checkType(ctx, folderID, docType)
			metrics.DocumentChecks.WithLabelValues(string(items[i].Status)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	out.Items = items
	return out
}

func (r *Resolver) checkType(ctx context.Context, applicantFolder, docType string) Item {
	item := Item{Type: docType}

	folderID, found, err := r.files.FindFolder(ctx, docType, applicantFolder)
	if err != nil {
		item.Status, item.Error = StatusUnknown, err.Error()
		return item
	}
	if !found {
		item.Status = StatusMissing
		return item
	}

	files, err := r.files.ListFiles(ctx, folderID)
	if err != nil {
		item.Status, item.Error = StatusUnknown, err.Error()
		return item
	}
	if len(files) == 0 {
		item.Status = StatusMissing
		return item
	}
	item.Status, item.Files = StatusPresent, files
	return item
}

// Upload stores localPath under the applicant's folder for docType,
// creating any missing folders, and returns the new file ID.
func (r *Resolver) Upload(ctx context.Context, studentName, docType, localPath string) (string, error) {
	if studentName == "" {
		return "", apperrors.NewInvalidInputError("studentName is required")
	}
	if !r.knownType(docType) {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown document type %q", docType))
	}

	mime, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", apperrors.NewDocumentUploadFailedError(studentName, docType, err)
	}

	parent := ""
	for _, name := range []string{r.rootFolder, studentName, docType} {
		if name == "" {
			continue
		}
		parent, err = r.ensureFolder(ctx, name, parent)
		if err != nil {
			return "", apperrors.NewDocumentUploadFailedError(studentName, docType, err)
		}
	}

	id, err := r.files.UploadFile(ctx, localPath, mime.String(), parent)
	if err != nil {
		return "", apperrors.NewDocumentUploadFailedError(studentName, docType, err)
	}

	r.logger.Info("document uploaded", map[string]interface{}{
		"studentName": studentName,
		"type":        docType,
		"mimeType":    mime.String(),
		"fileId":      id,
	})
	return id, nil
}

func (r *Resolver) Trash(ctx context.Context, fileID string) error {
	if fileID == "" {
		return apperrors.NewInvalidInputError("fileId is required")
	}
	return r.files.TrashFile(ctx, fileID)
}

func (r *Resolver) applicantFolder(ctx context.Context, studentName string) (string, bool, error) {
	parent := ""
	if r.rootFolder != "" {
		id, found, err := r.files.FindFolder(ctx, r.rootFolder, "")
		if err != nil || !found {
			return "", found, err
		}
		parent = id
	}
	return r.files.FindFolder(ctx, studentName, parent)
}

func (r *Resolver) ensureFolder(ctx context.Context, name, parent string) (string, error) {
	id, found, err := r.files.FindFolder(ctx, name, parent)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	return r.files.CreateFolder(ctx, name, parent)
}

func (r *Resolver) uniform(status Status, msg string) []Item {
	items := make([]Item, len(r.types))
	for i, t := range r.types {
		items[i] = Item{Type: t, Status: status, Error: msg}
	}
	return items
}

func (r *Resolver) knownType(docType string) bool {
	for _, t := range r.types {
		if t == docType {
			return true
		}
	}
	return false
}
