// Package s3store is a documents.FileStore over an S3 bucket. Folders are
// key prefixes marked by a zero-byte "<name>/" object; folder and file IDs
// are their keys.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"visa-tracker/internal/documents"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const trashPrefix = "trash/"

// API is the subset of *s3.Client the store calls.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner produces time-limited download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	Bucket  string
	Prefix  string
	LinkTTL time.Duration
}

type Store struct {
	api       API
	presigner Presigner
	bucket    string
	prefix    string
	linkTTL   time.Duration
}

// New wraps api. presigner may be nil, in which case files carry no link.
func New(api API, presigner Presigner, cfg Config) *Store {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{api: api, presigner: presigner, bucket: cfg.Bucket, prefix: prefix, linkTTL: ttl}
}

// NewFromClient is New with the presigner derived from client.
func NewFromClient(client *s3.Client, cfg Config) *Store {
	return New(client, s3.NewPresignClient(client), cfg)
}

func (s *Store) folderKey(name, parentID string) string {
	if parentID == "" {
		parentID = s.prefix
	}
	return parentID + sanitize(name) + "/"
}

// FindFolder treats a prefix as present when any object lives under it, so
// folders written by other tools without a marker are still found.
func (s *Store) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	key := s.folderKey(name, parentID)
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", false, fmt.Errorf("s3 list %s: %w", key, err)
	}
	if len(out.Contents) == 0 {
		return "", false, nil
	}
	return key, true, nil
}

func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	key := s.folderKey(name, parentID)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put folder %s: %w", key, err)
	}
	return key, nil
}

// ListFiles returns the direct children of folderID, excluding the folder
// marker and sub-folders.
func (s *Store) ListFiles(ctx context.Context, folderID string) ([]documents.File, error) {
	var files []documents.File
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(folderID),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", folderID, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == folderID || strings.HasSuffix(key, "/") {
				continue
			}
			f := documents.File{ID: key, Name: path.Base(key)}
			if link, err := s.link(ctx, key); err == nil {
				f.Link = link
			}
			files = append(files, f)
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	return files, nil
}

func (s *Store) UploadFile(ctx context.Context, localPath, mimeType, parentID string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	key := parentID + sanitize(filepath.Base(localPath))
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return key, nil
}

// TrashFile moves the object under the trash prefix. It is never hard
// deleted from the bucket.
func (s *Store) TrashFile(ctx context.Context, fileID string) error {
	dest := s.prefix + trashPrefix + strings.TrimPrefix(fileID, s.prefix)
	_, err := s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String((&url.URL{Path: s.bucket + "/" + fileID}).EscapedPath()),
		Key:        aws.String(dest),
	})
	if err != nil {
		return fmt.Errorf("s3 copy %s to trash: %w", fileID, err)
	}
	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", fileID, err)
	}
	return nil
}

func (s *Store) link(ctx context.Context, key string) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("no presigner")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.linkTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// sanitize keeps names from introducing extra path levels.
func sanitize(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "/", "-")
}
