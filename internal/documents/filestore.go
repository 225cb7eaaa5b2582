// Package documents resolves which required documents an applicant has
// uploaded. Documents live in a folder hierarchy on the file store:
// <root>/<student name>/<document type>/<files>.
package documents

import "context"

// File is one stored document.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// FileStore is the folder-oriented storage capability. An empty parentID
// addresses the top level.
type FileStore interface {
	FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	ListFiles(ctx context.Context, folderID string) ([]File, error)
	UploadFile(ctx context.Context, localPath, mimeType, parentID string) (string, error)
	TrashFile(ctx context.Context, fileID string) error
}
