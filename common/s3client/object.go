package s3client

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// PutObject uploads body and returns the ETag of the new object
func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker, metadata map[string]string) (string, error) {
	out, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to put object %s/%s", bucket, key)
	}
	return aws.ToString(out.ETag), nil
}

// PutObjectBytes uploads data as an object
func (c *Client) PutObjectBytes(ctx context.Context, bucket, key string, data []byte) (string, error) {
	return c.PutObject(ctx, bucket, key, bytes.NewReader(data), nil)
}

// PutObjectFile uploads the file at path as an object
func (c *Client) PutObjectFile(ctx context.Context, bucket, key, path string, metadata map[string]string) (string, error) {
	logf.Log.Info("Uploading file", "bucket", bucket, "key", key, "path", path)
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return c.PutObject(ctx, bucket, key, f, metadata)
}

// GetObject returns a reader for the object body, the caller closes it
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get object %s/%s", bucket, key)
	}
	return out.Body, nil
}

// GetObjectBytes reads the whole object
func (c *Client) GetObjectBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	body, err := c.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// ListObjects returns every key of bucket starting with prefix
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list objects of %s", bucket)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	logf.Log.Info("Deleting object", "bucket", bucket, "key", key)
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "failed to delete object %s/%s", bucket, key)
}

// CopyObject copies an object and returns the ETag of the copy
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (string, error) {
	logf.Log.Info("Copying object", "src", srcBucket+"/"+srcKey, "dst", dstBucket+"/"+dstKey)
	out, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to copy %s/%s to %s/%s", srcBucket, srcKey, dstBucket, dstKey)
	}
	if out.CopyObjectResult == nil {
		return "", errors.Errorf("copy of %s/%s returned no result", srcBucket, srcKey)
	}
	return aws.ToString(out.CopyObjectResult.ETag), nil
}

// PutObjectGrant replaces the object ACL with a grant of permission to the group uri
func (c *Client) PutObjectGrant(ctx context.Context, bucket, key string, permission types.Permission, uri string) error {
	logf.Log.Info("Putting object acl", "bucket", bucket, "key", key, "grant", permission, "grantee", uri)
	input := &s3.PutObjectAclInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	grantee := aws.String("uri=" + uri)
	switch permission {
	case types.PermissionFullControl:
		input.GrantFullControl = grantee
	case types.PermissionRead:
		input.GrantRead = grantee
	case types.PermissionWrite:
		input.GrantWrite = grantee
	case types.PermissionReadAcp:
		input.GrantReadACP = grantee
	case types.PermissionWriteAcp:
		input.GrantWriteACP = grantee
	default:
		return errors.Errorf("unsupported permission %q", permission)
	}
	_, err := c.s3.PutObjectAcl(ctx, input)
	return errors.Wrapf(err, "failed to put acl on %s/%s", bucket, key)
}

func (c *Client) GetObjectACL(ctx context.Context, bucket, key string) (*s3.GetObjectAclOutput, error) {
	out, err := c.s3.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return out, errors.Wrapf(err, "failed to get acl of %s/%s", bucket, key)
}

// HasGroupGrant reports whether grants give permission to the group uri
func HasGroupGrant(grants []types.Grant, permission types.Permission, uri string) bool {
	for _, g := range grants {
		if g.Grantee == nil || g.Grantee.Type != types.TypeGroup {
			continue
		}
		if aws.ToString(g.Grantee.URI) == uri && g.Permission == permission {
			return true
		}
	}
	return false
}
