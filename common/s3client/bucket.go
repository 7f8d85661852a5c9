package s3client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	logf.Log.Info("Creating bucket", "bucket", bucket)
	_, err := c.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	return errors.Wrapf(err, "failed to create bucket %s", bucket)
}

// ListBuckets returns the names of the buckets owned by the account
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	var names []string
	input := &s3.ListBucketsInput{}
	for {
		out, err := c.s3.ListBuckets(ctx, input)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list buckets")
		}
		for _, b := range out.Buckets {
			names = append(names, aws.ToString(b.Name))
		}
		if aws.ToString(out.ContinuationToken) == "" {
			break
		}
		input.ContinuationToken = out.ContinuationToken
	}
	return names, nil
}

// BucketExists reports whether bucket is listed for the account
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	names, err := c.ListBuckets(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == bucket {
			return true, nil
		}
	}
	return false, nil
}

// EmptyBucket deletes every object and pending multipart upload of bucket
func (c *Client) EmptyBucket(ctx context.Context, bucket string) error {
	keys, err := c.ListObjects(ctx, bucket, "")
	if err != nil {
		return err
	}
	const batch = 1000
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}
		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to delete objects of %s", bucket)
		}
		if len(out.Errors) != 0 {
			return errors.Errorf("failed to delete %d objects of %s: %s", len(out.Errors), bucket, aws.ToString(out.Errors[0].Message))
		}
	}

	uploads, err := c.s3.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{Bucket: aws.String(bucket)})
	if err != nil {
		return errors.Wrapf(err, "failed to list multipart uploads of %s", bucket)
	}
	for _, u := range uploads.Uploads {
		if err := c.AbortMultipartUpload(ctx, bucket, aws.ToString(u.Key), aws.ToString(u.UploadId)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBucket deletes bucket, emptying it first when force is set
func (c *Client) DeleteBucket(ctx context.Context, bucket string, force bool) error {
	logf.Log.Info("Deleting bucket", "bucket", bucket, "force", force)
	if force {
		if err := c.EmptyBucket(ctx, bucket); err != nil {
			return err
		}
	}
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	return errors.Wrapf(err, "failed to delete bucket %s", bucket)
}

// DeleteAllBuckets empties and deletes every bucket of the account
func (c *Client) DeleteAllBuckets(ctx context.Context) error {
	names, err := c.ListBuckets(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := c.DeleteBucket(ctx, name, true); err != nil {
			return err
		}
	}
	return nil
}

// PutBucketGrant replaces the bucket ACL with a grant of permission to the group uri
func (c *Client) PutBucketGrant(ctx context.Context, bucket string, permission types.Permission, uri string) error {
	input := &s3.PutBucketAclInput{Bucket: aws.String(bucket)}
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
	_, err := c.s3.PutBucketAcl(ctx, input)
	return errors.Wrapf(err, "failed to put acl on bucket %s", bucket)
}

func (c *Client) GetBucketACL(ctx context.Context, bucket string) (*s3.GetBucketAclOutput, error) {
	out, err := c.s3.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)})
	return out, errors.Wrapf(err, "failed to get acl of bucket %s", bucket)
}
