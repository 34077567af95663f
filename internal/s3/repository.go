package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

func (r *Repository) objectPath(key string) string {
	return path.Join(
		r.Prefix,
		key,
	)
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	objPath := r.objectPath(key)

	r.logger.Debug(
		"S3 repository write",
		zap.String("key", key),
		zap.String("prefix", r.Prefix),
		zap.String("object_path", objPath),
		zap.String("bucket", r.Bucket),
	)

	_, err := r.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(objPath),

		// io.ReadSeeker is preferred as the Uploader will be able to
		// optimize memory when uploading large content.
		Body: bufio.NewReader(reader),
	})
	return err
}

func (r *Repository) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	objPath := r.objectPath(key)

	buf := aws.NewWriteAtBuffer(nil)
	_, err := r.downloader.DownloadWithContext(ctx, buf, &awss3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(objPath),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == awss3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, fmt.Errorf("s3://%s/%s: %w", r.Bucket, objPath, fs.ErrNotExist)
		}
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func (r *Repository) List(ctx context.Context, prefix string) ([]string, error) {
	objPrefix := r.objectPath(prefix)
	if strings.HasSuffix(prefix, "/") {
		objPrefix += "/"
	}

	var keys []string
	err := r.client.ListObjectsV2PagesWithContext(ctx, &awss3.ListObjectsV2Input{
		Bucket: aws.String(r.Bucket),
		Prefix: aws.String(objPrefix),
	}, func(page *awss3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.StringValue(obj.Key), r.Prefix)
			keys = append(keys, strings.TrimPrefix(key, "/"))
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
