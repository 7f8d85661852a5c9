package s3client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// ListIAMUsers returns the IAM user names created under the account
func (c *Client) ListIAMUsers(ctx context.Context) ([]string, error) {
	var names []string
	paginator := iam.NewListUsersPaginator(c.iam, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list IAM users")
		}
		for _, u := range page.Users {
			names = append(names, aws.ToString(u.UserName))
		}
	}
	return names, nil
}

// DeleteIAMUser deletes the access keys of user and then the user
func (c *Client) DeleteIAMUser(ctx context.Context, user string) error {
	keys, err := c.iam.ListAccessKeys(ctx, &iam.ListAccessKeysInput{UserName: aws.String(user)})
	if err != nil {
		return errors.Wrapf(err, "failed to list access keys of %s", user)
	}
	for _, k := range keys.AccessKeyMetadata {
		_, err = c.iam.DeleteAccessKey(ctx, &iam.DeleteAccessKeyInput{
			UserName:    aws.String(user),
			AccessKeyId: k.AccessKeyId,
		})
		if err != nil {
			return errors.Wrapf(err, "failed to delete access key of %s", user)
		}
	}
	_, err = c.iam.DeleteUser(ctx, &iam.DeleteUserInput{UserName: aws.String(user)})
	return errors.Wrapf(err, "failed to delete IAM user %s", user)
}

// DeleteAllIAMUsers removes every IAM user of the account. An account the
// gateway serves no IAM user API for has nothing to remove.
func (c *Client) DeleteAllIAMUsers(ctx context.Context) error {
	users, err := c.ListIAMUsers(ctx)
	if IsIAMUnsupported(err) {
		logf.Log.Info("IAM user API not available, nothing to clean", "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	for _, user := range users {
		logf.Log.Info("Deleting IAM user", "user", user)
		if err := c.DeleteIAMUser(ctx, user); err != nil {
			return err
		}
	}
	return nil
}
