package ha

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/s3client"
)

// DefaultCopyObjectSizeMB is the size of the source object of copy workloads
const DefaultCopyObjectSizeMB = 1000

// CreateFile replaces path with sizeMB MiB of random data
func CreateFile(path string, sizeMB int) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "failed to remove %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()
	if _, err = io.CopyN(f, rand.Reader, int64(sizeMB)*units.MiB); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Sync()
}

// CreateMultipleDataParts reads the file at path in chunks of
// sizeMB/totalParts MiB, numbering parts from 1. A remainder becomes an
// extra part.
func CreateMultipleDataParts(path string, sizeMB, totalParts int) (map[int32][]byte, error) {
	if totalParts <= 0 {
		return nil, errors.Errorf("invalid number of parts %d", totalParts)
	}
	partSize := int64(sizeMB/totalParts) * units.MiB
	if partSize == 0 {
		return nil, errors.Errorf("%d MiB cannot be split in %d parts of whole MiB", sizeMB, totalParts)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	parts := map[int32][]byte{}
	for i := int32(1); ; i++ {
		buf := make([]byte, partSize)
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			parts[i] = buf[:n]
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}
	logf.Log.Info("Created parts of data", "path", path, "parts", len(parts))
	return parts, nil
}

func sortParts(parts []s3types.CompletedPart) []s3types.CompletedPart {
	sorted := append([]s3types.CompletedPart{}, parts...)
	sort.Slice(sorted, func(i, j int) bool {
		return aws.ToInt32(sorted[i].PartNumber) < aws.ToInt32(sorted[j].PartNumber)
	})
	return sorted
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (h *HA) createBucketAndUpload(ctx context.Context, c S3Client, bucket, object string) (string, error) {
	logf.Log.Info("Creating bucket", "bucket", bucket)
	if err := c.CreateBucket(ctx, bucket); err != nil {
		return "", err
	}
	logf.Log.Info("Initiating multipart upload", "bucket", bucket, "object", object)
	return c.CreateMultipartUpload(ctx, bucket, object)
}

// CreateBucketToCompleteMPU uploads a new file of fileSizeMB MiB in
// totalParts parts to a new bucket and completes the upload
func (h *HA) CreateBucketToCompleteMPU(ctx context.Context, account common.S3Account, bucket, object string, fileSizeMB, totalParts int, path string) error {
	c, err := h.s3(ctx, account)
	if err != nil {
		return err
	}
	uploadID, err := h.createBucketAndUpload(ctx, c, bucket, object)
	if err != nil {
		return err
	}
	if err = CreateFile(path, fileSizeMB); err != nil {
		return err
	}
	data, err := CreateMultipleDataParts(path, fileSizeMB, totalParts)
	if err != nil {
		return err
	}
	if len(data) != totalParts {
		return errors.Errorf("file split in %d parts, expected %d", len(data), totalParts)
	}

	logf.Log.Info("Uploading parts", "bucket", bucket, "object", object, "parts", totalParts)
	var parts []s3types.CompletedPart
	for n := int32(1); n <= int32(totalParts); n++ {
		etag, err := c.UploadPart(ctx, bucket, object, uploadID, n, data[n])
		if err != nil {
			return err
		}
		parts = append(parts, s3client.CompletedPart(n, etag))
	}

	listed, err := c.ListParts(ctx, bucket, object, uploadID)
	if err != nil {
		return err
	}
	if len(listed) != totalParts {
		return errors.Errorf("upload %s lists %d parts, expected %d", uploadID, len(listed), totalParts)
	}
	logf.Log.Info("Completing multipart upload", "uploadId", uploadID)
	if _, err = c.CompleteMultipartUpload(ctx, bucket, object, uploadID, parts); err != nil {
		return err
	}
	keys, err := c.ListObjects(ctx, bucket, "")
	if err != nil {
		return err
	}
	if !contains(keys, object) {
		return errors.Errorf("object %s not listed in %s after upload", object, bucket)
	}
	logf.Log.Info("Multipart upload completed", "bucket", bucket, "object", object)
	return nil
}

type PartialMPURequest struct {
	Bucket      string
	Object      string
	PartNumbers []int32
	FileSizeMB  int
	TotalParts  int
	FilePath    string
	// Remaining continues UploadID with Parts and Completed instead of
	// starting a new upload
	Remaining bool
	UploadID  string
	Parts     map[int32][]byte
	Completed []s3types.CompletedPart
}

type PartialMPUResult struct {
	UploadID  string
	Parts     map[int32][]byte
	Completed []s3types.CompletedPart
}

// PartialMultipartUpload uploads the requested parts of an upload, starting
// the upload first unless req.Remaining is set
func (h *HA) PartialMultipartUpload(ctx context.Context, account common.S3Account, req PartialMPURequest) (PartialMPUResult, error) {
	completed := make([]s3types.CompletedPart, len(req.Completed), len(req.Completed)+len(req.PartNumbers))
	copy(completed, req.Completed)
	res := PartialMPUResult{UploadID: req.UploadID, Parts: req.Parts, Completed: completed}
	c, err := h.s3(ctx, account)
	if err != nil {
		return res, err
	}
	if !req.Remaining {
		if res.UploadID, err = h.createBucketAndUpload(ctx, c, req.Bucket, req.Object); err != nil {
			return res, err
		}
		if err = CreateFile(req.FilePath, req.FileSizeMB); err != nil {
			return res, err
		}
		if res.Parts, err = CreateMultipleDataParts(req.FilePath, req.FileSizeMB, req.TotalParts); err != nil {
			return res, err
		}
	}

	logf.Log.Info("Uploading parts", "parts", req.PartNumbers, "uploadId", res.UploadID)
	for _, n := range req.PartNumbers {
		data, ok := res.Parts[n]
		if !ok {
			return res, errors.Errorf("no data for part %d", n)
		}
		etag, err := c.UploadPart(ctx, req.Bucket, req.Object, res.UploadID, n, data)
		if err != nil {
			return res, err
		}
		res.Completed = append(res.Completed, s3client.CompletedPart(n, etag))
	}
	return res, nil
}

// CompleteMPU completes an upload with the parts collected so far, in part order
func (h *HA) CompleteMPU(ctx context.Context, account common.S3Account, bucket, object, uploadID string, parts []s3types.CompletedPart) (string, error) {
	c, err := h.s3(ctx, account)
	if err != nil {
		return "", err
	}
	return c.CompleteMultipartUpload(ctx, bucket, object, uploadID, sortParts(parts))
}

type BucketObject struct {
	Bucket string
	Object string
}

type CopyObjectRequest struct {
	Bucket string
	Object string
	// CreateBucket creates Bucket and puts Object first, otherwise PutETag
	// is the ETag of the existing object
	CreateBucket bool
	PutETag      string
	FilePath     string
	FileSizeMB   int
	Destinations []BucketObject
}

type CopyResult struct {
	ETag string
	Err  error
}

var copyMetadata = map[string]string{"City": "Pune", "Country": "India"}

// CreateBucketCopyObject puts an object and copies it to every destination,
// checking the ETag of each copy. It returns the ETag of the source object.
func (h *HA) CreateBucketCopyObject(ctx context.Context, c S3Client, req CopyObjectRequest) (string, error) {
	putETag := req.PutETag
	if req.CreateBucket {
		logf.Log.Info("Create bucket and put object", "bucket", req.Bucket, "object", req.Object)
		if err := c.CreateBucket(ctx, req.Bucket); err != nil {
			return "", err
		}
		buckets, err := c.ListBuckets(ctx)
		if err != nil {
			return "", err
		}
		if !contains(buckets, req.Bucket) {
			return "", errors.Errorf("bucket %s not listed: %v", req.Bucket, buckets)
		}
		size := req.FileSizeMB
		if size == 0 {
			size = DefaultCopyObjectSizeMB
		}
		if err = CreateFile(req.FilePath, size); err != nil {
			return "", err
		}
		if putETag, err = c.PutObjectFile(ctx, req.Bucket, req.Object, req.FilePath, copyMetadata); err != nil {
			return "", err
		}
		keys, err := c.ListObjects(ctx, req.Bucket, "")
		if err != nil {
			return "", err
		}
		if !contains(keys, req.Object) {
			return "", errors.Errorf("object %s not listed in %s", req.Object, req.Bucket)
		}
	}

	logf.Log.Info("Copy object to other buckets", "source", req.Bucket+"/"+req.Object, "copies", len(req.Destinations))
	for _, dst := range req.Destinations {
		buckets, err := c.ListBuckets(ctx)
		if err != nil {
			return putETag, err
		}
		if !contains(buckets, dst.Bucket) {
			if err = c.CreateBucket(ctx, dst.Bucket); err != nil {
				return putETag, err
			}
		}
		copyETag, err := c.CopyObject(ctx, req.Bucket, req.Object, dst.Bucket, dst.Object)
		if err != nil {
			return putETag, err
		}
		if copyETag != putETag {
			return putETag, errors.Errorf("copy %s/%s has ETag %s, source has %s", dst.Bucket, dst.Object, copyETag, putETag)
		}
		logf.Log.Info("Object copied", "bucket", dst.Bucket, "object", dst.Object)
	}
	return putETag, nil
}

// CreateBucketCopyObjectAsync runs CreateBucketCopyObject in the background
func (h *HA) CreateBucketCopyObjectAsync(ctx context.Context, c S3Client, req CopyObjectRequest) <-chan CopyResult {
	out := make(chan CopyResult, 1)
	go func() {
		defer close(out)
		etag, err := h.CreateBucketCopyObject(ctx, c, req)
		out <- CopyResult{ETag: etag, Err: err}
	}()
	return out
}

type RandomMPURequest struct {
	Bucket      string
	Object      string
	FileSizeMB  int
	TotalParts  int
	FilePath    string
	PartNumbers []int32
}

type MPUResult struct {
	UploadID  string
	Completed []s3types.CompletedPart
	// FailedParts holds the data of the parts that could not be uploaded
	FailedParts map[int32][]byte
	Err         error
}

// StartRandomMPU uploads the requested parts of a new upload in the
// background. Failed parts are collected, a failure to start the upload
// ends the run with Err set.
func (h *HA) StartRandomMPU(ctx context.Context, account common.S3Account, req RandomMPURequest) <-chan MPUResult {
	out := make(chan MPUResult, 1)
	go func() {
		defer close(out)
		res := MPUResult{FailedParts: map[int32][]byte{}}
		c, err := h.s3(ctx, account)
		if err == nil {
			res.UploadID, err = h.createBucketAndUpload(ctx, c, req.Bucket, req.Object)
		}
		if err != nil {
			logf.Log.Info("Failed to start multipart upload", "error", err)
			res.Err = err
			out <- res
			return
		}
		var parts map[int32][]byte
		if err = CreateFile(req.FilePath, req.FileSizeMB); err == nil {
			parts, err = CreateMultipleDataParts(req.FilePath, req.FileSizeMB, req.TotalParts)
		}
		if err != nil {
			res.Err = err
			out <- res
			return
		}
		for _, n := range req.PartNumbers {
			data, ok := parts[n]
			if !ok {
				res.Err = errors.Errorf("no data for part %d", n)
				out <- res
				return
			}
			etag, err := c.UploadPart(ctx, req.Bucket, req.Object, res.UploadID, n, data)
			if err != nil {
				logf.Log.Info("Part upload failed", "part", n, "error", err)
				res.FailedParts[n] = data
				continue
			}
			res.Completed = append(res.Completed, s3client.CompletedPart(n, etag))
		}
		out <- res
	}()
	return out
}
