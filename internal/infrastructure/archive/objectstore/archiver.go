package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/archive"
)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
	Format    archive.Format
}

// Archiver stores report snapshots in an S3 compatible bucket. Locators have
// the form s3://<bucket>/<key>.
type Archiver struct {
	client *minio.Client
	bucket string
	prefix string
	format archive.Format
}

func New(ctx context.Context, opts Options) (*Archiver, error) {
	if strings.TrimSpace(opts.Endpoint) == "" || strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("object store endpoint and bucket are required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	format := opts.Format
	if format == "" {
		format = archive.FormatJSON
	}
	return &Archiver{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		format: format,
	}, nil
}

func (a *Archiver) Archive(ctx context.Context, report *domain.AnalysisReport) (string, error) {
	data, err := archive.Encode(report, a.format)
	if err != nil {
		return "", err
	}
	name, err := archive.ObjectName(report.ID, a.format)
	if err != nil {
		return "", err
	}
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}

	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: a.format.ContentType(),
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "put snapshot", err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}
