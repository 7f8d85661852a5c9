package s3client

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// CreateMultipartUpload initiates an upload and returns its id
func (c *Client) CreateMultipartUpload(ctx context.Context, bucket, key string) (string, error) {
	out, err := c.s3.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to initiate multipart upload of %s/%s", bucket, key)
	}
	logf.Log.Info("Multipart upload initiated", "bucket", bucket, "key", key, "uploadId", aws.ToString(out.UploadId))
	return aws.ToString(out.UploadId), nil
}

// UploadPart uploads one part and returns its ETag
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, data []byte) (string, error) {
	out, err := c.s3.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload part %d of %s/%s", partNumber, bucket, key)
	}
	return aws.ToString(out.ETag), nil
}

// ListParts returns the parts uploaded so far
func (c *Client) ListParts(ctx context.Context, bucket, key, uploadID string) ([]types.Part, error) {
	var parts []types.Part
	paginator := s3.NewListPartsPaginator(c.s3, &s3.ListPartsInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list parts of %s/%s", bucket, key)
		}
		parts = append(parts, page.Parts...)
	}
	return parts, nil
}

// CompleteMultipartUpload assembles the object from parts and returns its ETag
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []types.CompletedPart) (string, error) {
	out, err := c.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to complete multipart upload of %s/%s", bucket, key)
	}
	return aws.ToString(out.ETag), nil
}

func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	_, err := c.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	return errors.Wrapf(err, "failed to abort multipart upload of %s/%s", bucket, key)
}

// CompletedPart builds the completion entry for an uploaded part
func CompletedPart(partNumber int32, etag string) types.CompletedPart {
	return types.CompletedPart{PartNumber: aws.Int32(partNumber), ETag: aws.String(etag)}
}
