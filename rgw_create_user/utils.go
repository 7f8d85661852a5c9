package rgw_create_user

import (
	"context"
	"fmt"

	"github.com/ceph/go-ceph/rgw/admin"
	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common/rgwadmin"
	"cortx-e2e/common/s3client"
)

type createdUser struct {
	tenant string
	uid    string
}

// users created by the current test, removed in AfterEach
var created []createdUser

func createUser(ctx context.Context, client *rgwadmin.Client, spec rgwadmin.UserSpec) (admin.User, error) {
	user, err := client.CreateUser(ctx, spec)
	if err == nil {
		created = append(created, createdUser{tenant: spec.Tenant, uid: spec.UID})
	}
	return user, err
}

// createAndGetUser creates the user and checks the gateway returns it
func createAndGetUser(ctx context.Context, client *rgwadmin.Client, spec rgwadmin.UserSpec) admin.User {
	logf.Log.Info("Creating a new user", "uid", spec.UID, "tenant", spec.Tenant)
	_, err := createUser(ctx, client, spec)
	Expect(err).ToNot(HaveOccurred(), "Not able to create user")

	user, err := client.GetUser(ctx, spec.Tenant, spec.UID)
	Expect(err).ToNot(HaveOccurred(), "Not able to get user info")
	Expect(user.ID).To(Equal(rgwadmin.FullUID(spec.Tenant, spec.UID)))
	Expect(user.DisplayName).To(Equal(spec.DisplayName))
	return user
}

func removeCreatedUsers(ctx context.Context, client *rgwadmin.Client) {
	for _, u := range created {
		if err := client.RemoveUser(ctx, u.tenant, u.uid); err != nil && !rgwadmin.IsNotFound(err) {
			logf.Log.Info("Failed to remove user", "uid", u.uid, "error", err)
		}
	}
	created = nil
}

// verifyMaxBuckets creates maxBuckets buckets as user and expects one more to be refused
func verifyMaxBuckets(ctx context.Context, user admin.User, maxBuckets int) {
	account, err := rgwadmin.AccountOf(user)
	Expect(err).ToNot(HaveOccurred())
	client, err := s3client.ForAccount(ctx, account)
	Expect(err).ToNot(HaveOccurred())
	defer func() {
		Expect(client.DeleteAllBuckets(ctx)).To(Succeed())
	}()

	prefix := fmt.Sprintf("maxbkt-%s", user.ID)
	for i := 0; i < maxBuckets; i++ {
		Expect(client.CreateBucket(ctx, fmt.Sprintf("%s-%d", prefix, i))).To(Succeed())
	}
	err = client.CreateBucket(ctx, fmt.Sprintf("%s-%d", prefix, maxBuckets))
	Expect(err).To(HaveOccurred())
	Expect(s3client.ErrorCode(err)).To(Equal("TooManyBuckets"))
}
