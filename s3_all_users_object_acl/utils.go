package s3_all_users_object_acl

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/s3client"
)

type anonOp string

const (
	opPut    anonOp = "put object"
	opDelete anonOp = "delete object"
	opGet    anonOp = "get object"
	opGetACL anonOp = "get object acl"
	opPutACL anonOp = "put object acl"
)

var allOps = []anonOp{opPut, opDelete, opGet, opGetACL, opPutACL}

// allowed lists the anonymous operations that succeed for each object grant
// to AllUsers, the bucket granting FULL_CONTROL to AllUsers
var allowed = map[types.Permission]map[anonOp]bool{
	types.PermissionRead:        {opPut: true, opDelete: true, opGet: true},
	types.PermissionWrite:       {opPut: true, opDelete: true},
	types.PermissionReadAcp:     {opPut: true, opDelete: true, opGetACL: true},
	types.PermissionWriteAcp:    {opPut: true, opDelete: true, opPutACL: true},
	types.PermissionFullControl: {opPut: true, opDelete: true, opGet: true, opGetACL: true, opPutACL: true},
}

var grants = []types.Permission{
	types.PermissionRead,
	types.PermissionWrite,
	types.PermissionReadAcp,
	types.PermissionWriteAcp,
	types.PermissionFullControl,
}

// setup creates a bucket open to AllUsers holding one object
func (c *aclConfig) setup(ctx context.Context, signed *s3client.Client) {
	logf.Log.Info("Creating a bucket and putting an object into bucket", "bucket", c.bucketName, "object", c.objName)
	Expect(ha.CreateFile(c.filePath, c.mbCount)).To(Succeed())
	Expect(signed.CreateBucket(ctx, c.bucketName)).To(Succeed())
	_, err := signed.PutObjectFile(ctx, c.bucketName, c.objName, c.filePath, nil)
	Expect(err).ToNot(HaveOccurred())
	logf.Log.Info("Setting bucket ACL to FULL_CONTROL for all users")
	Expect(signed.PutBucketGrant(ctx, c.bucketName, types.PermissionFullControl, common.AllUsersGroupURI)).To(Succeed())
	acl, err := signed.GetBucketACL(ctx, c.bucketName)
	Expect(err).ToNot(HaveOccurred())
	Expect(s3client.HasGroupGrant(acl.Grants, types.PermissionFullControl, common.AllUsersGroupURI)).To(BeTrue(), "grants %v", acl.Grants)
}

func (c *aclConfig) teardown(ctx context.Context, signed *s3client.Client) {
	_ = signed.DeleteBucket(ctx, c.bucketName, true)
	_ = os.Remove(c.filePath)
}

// grantObject gives permission on the object to AllUsers and checks the ACL
func (c *aclConfig) grantObject(ctx context.Context, signed *s3client.Client, permission types.Permission) {
	logf.Log.Info("Changing object acl for all users", "permission", permission)
	Expect(signed.PutObjectGrant(ctx, c.bucketName, c.objName, permission, common.AllUsersGroupURI)).To(Succeed())
	acl, err := signed.GetObjectACL(ctx, c.bucketName, c.objName)
	Expect(err).ToNot(HaveOccurred())
	Expect(s3client.HasGroupGrant(acl.Grants, permission, common.AllUsersGroupURI)).To(BeTrue(), "grants %v", acl.Grants)
}

func (c *aclConfig) runAnonymous(ctx context.Context, anon *s3client.Client, op anonOp, permission types.Permission) error {
	var err error
	switch op {
	case opPut:
		_, err = anon.PutObjectFile(ctx, c.bucketName, c.objName, c.filePath, nil)
	case opDelete:
		err = anon.DeleteObject(ctx, c.bucketName, c.objName)
	case opGet:
		_, err = anon.GetObjectBytes(ctx, c.bucketName, c.objName)
	case opGetACL:
		_, err = anon.GetObjectACL(ctx, c.bucketName, c.objName)
	case opPutACL:
		err = anon.PutObjectGrant(ctx, c.bucketName, c.objName, permission, common.AllUsersGroupURI)
	}
	return err
}

// verifyAnonymous runs op without credentials and checks the outcome the grant allows
func (c *aclConfig) verifyAnonymous(ctx context.Context, anon *s3client.Client, op anonOp, permission types.Permission) {
	err := c.runAnonymous(ctx, anon, op, permission)
	if allowed[permission][op] {
		Expect(err).ToNot(HaveOccurred(), "unsigned %s with %s", op, permission)
		return
	}
	Expect(err).To(HaveOccurred(), "unsigned %s with %s", op, permission)
	Expect(s3client.IsAccessDenied(err)).To(BeTrue(), "%v", err)
}
