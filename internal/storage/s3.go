package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/config"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
)

const parentMetadataKey = "parent"

// objectAPI is the subset of the S3 client the store needs besides the uploader.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage implements remote.Store on an S3-compatible bucket. Folders are marker objects,
// file ids are object keys and folder membership lives in the "parent" object metadata, so a
// move rewrites metadata in place and never changes the file id. Access tokens are ignored;
// bucket credentials come from the AWS config chain.
type S3Storage struct {
	client   objectAPI
	uploader uploader
	bucket   string
	newID    func() string
}

// NewS3Storage configures a store targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return newS3Storage(client, up, cfg.Bucket), nil
}

func newS3Storage(client objectAPI, up uploader, bucket string) *S3Storage {
	return &S3Storage{client: client, uploader: up, bucket: bucket, newID: uuid.NewString}
}

// UploadFile stores the blob and returns its object key.
func (s *S3Storage) UploadFile(ctx context.Context, _ string, file remote.File) (string, error) {
	name := path.Base("/" + file.Name)
	if name == "/" || name == "." {
		return "", fmt.Errorf("s3 storage: empty file name")
	}

	key := "videos/" + s.newID() + "-" + name
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(file.MimeType),
		Metadata:    map[string]string{parentMetadataKey: remote.ParentOrRoot(file.ParentID)},
	})
	if err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}
	return key, nil
}

// CreateFolder writes a folder marker object and returns its key.
func (s *S3Storage) CreateFolder(ctx context.Context, _ string, name string) (string, error) {
	key := "folders/" + s.newID()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(nil),
		Metadata: map[string]string{"name": name, parentMetadataKey: remote.Root},
	})
	if err != nil {
		return "", fmt.Errorf("s3 storage create folder: %w", err)
	}
	return key, nil
}

// Delete removes the object. A missing key is not an error.
func (s *S3Storage) Delete(ctx context.Context, _ string, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil
		}
		return fmt.Errorf("s3 storage delete %s: %w", id, err)
	}
	return nil
}

// Move copies the object onto itself with the new parent recorded in its metadata.
func (s *S3Storage) Move(ctx context.Context, _ string, fileID, _, toParentID string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		CopySource:        aws.String(s.bucket + "/" + fileID),
		Key:               aws.String(fileID),
		MetadataDirective: s3types.MetadataDirectiveReplace,
		Metadata:          map[string]string{parentMetadataKey: remote.ParentOrRoot(toParentID)},
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return fmt.Errorf("s3 storage move %s: %w", fileID, remote.ErrNotFound)
		}
		return fmt.Errorf("s3 storage move %s: %w", fileID, err)
	}
	return nil
}

var _ remote.Store = (*S3Storage)(nil)
