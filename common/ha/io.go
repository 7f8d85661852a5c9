package ha

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/workload"
)

type IOOptions struct {
	// Prefix of the objects written
	Prefix     string
	NUsers     int
	NBuckets   int
	FilesCount int
	// Async writes in the background for StopUploadTime and then signals stop
	Async          bool
	StopUploadTime time.Duration
	// DI verifies and cleans up the writes of Run instead of writing
	DI  bool
	Run *IORun
}

// IORun is the state of a write phase, consumed by the verify phase
type IORun struct {
	Manager  *workload.DataCheckManager
	Accounts []common.S3Account
	Async    bool
	reads    *workload.Verification
}

func (h *HA) storeFactory() workload.StoreFactory {
	return func(ctx context.Context, account common.S3Account) (workload.ObjectStore, error) {
		c, err := h.s3(ctx, account)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func bucketName(i int) string {
	return fmt.Sprintf("ha-bkt-%d-%s", i, strings.Split(uuid.NewString(), "-")[0])
}

// createBuckets creates nbuckets buckets for every account
func (h *HA) createBuckets(ctx context.Context, accounts []common.S3Account, nbuckets int) ([]workload.BucketSet, error) {
	sets := make([]workload.BucketSet, 0, len(accounts))
	for _, account := range accounts {
		c, err := h.s3(ctx, account)
		if err != nil {
			return nil, err
		}
		set := workload.BucketSet{Account: account}
		for i := 0; i < nbuckets; i++ {
			name := bucketName(i)
			if err = c.CreateBucket(ctx, name); err != nil {
				return nil, err
			}
			set.Buckets = append(set.Buckets, name)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// PerformIOsOps writes objects as new accounts, or with opts.DI set stops
// the IO of opts.Run, checks every object and deletes the accounts
func (h *HA) PerformIOsOps(ctx context.Context, opts IOOptions) (*IORun, error) {
	if opts.DI {
		if opts.Run == nil {
			return nil, errors.New("no IO run to verify")
		}
		logf.Log.Info("Checking DI for IOs run")
		if err := opts.Run.Manager.StopIO(ctx, true); err != nil {
			return opts.Run, err
		}
		return opts.Run, h.DeleteS3AccountBucketsObjects(ctx, opts.Run.Accounts)
	}

	logf.Log.Info("Create accounts and buckets, upload objects", "users", opts.NUsers, "buckets", opts.NBuckets)
	accounts, err := h.users.CreateAccountUsers(ctx, "ha-io", opts.NUsers)
	if err != nil {
		return nil, err
	}
	run := &IORun{Accounts: accounts, Async: opts.Async}
	sets, err := h.createBuckets(ctx, accounts, opts.NBuckets)
	if err != nil {
		return run, err
	}
	run.Manager, err = workload.NewDataCheckManager(h.storeFactory(), sets, h.cfg.MaxFileSize)
	if err != nil {
		return run, err
	}
	if !opts.Async {
		return run, run.Manager.StartIO(ctx, opts.FilesCount, opts.Prefix)
	}
	run.Manager.StartIOAsync(ctx, opts.FilesCount, opts.Prefix)
	if err = sleep(ctx, opts.StopUploadTime); err != nil {
		run.Manager.Stop()
		return run, err
	}
	run.Manager.Stop()
	return run, run.Manager.Wait()
}

// PerformIOReadParallel starts background reads of the objects of run, or
// waits for them and returns their result when start is false
func (h *HA) PerformIOReadParallel(ctx context.Context, run *IORun, start bool) error {
	if run == nil || run.Manager == nil {
		return errors.New("no IO run to read")
	}
	if start {
		logf.Log.Info("Starting parallel reads", "objects", run.Manager.Objects())
		run.reads = run.Manager.VerifyAsync(ctx)
		return nil
	}
	if run.reads == nil {
		return errors.New("parallel reads were not started")
	}
	err := run.reads.Wait()
	run.reads = nil
	logf.Log.Info("Parallel reads stopped", "error", err)
	return err
}

// DeleteS3AccountBucketsObjects removes the buckets and objects of every
// account and then the account
func (h *HA) DeleteS3AccountBucketsObjects(ctx context.Context, accounts []common.S3Account) error {
	for _, account := range accounts {
		logf.Log.Info("Deleting buckets and account", "user", account.UserName)
		c, err := h.s3(ctx, account)
		if err != nil {
			return err
		}
		if err = c.DeleteAllBuckets(ctx); err != nil {
			return err
		}
		iamErr := c.DeleteAllIAMUsers(ctx)
		if iamErr != nil {
			logf.Log.Info("IAM user cleanup failed, removing the account anyway", "user", account.UserName, "error", iamErr)
		}
		if err = h.users.RemoveUser(ctx, "", account.UserName); err != nil {
			return err
		}
		if iamErr != nil {
			return iamErr
		}
	}
	return nil
}

type WorkloadOptions struct {
	Clients     int
	Samples     int
	SkipRead    bool
	SkipWrite   bool
	SkipCleanup bool
}

// S3WorkloadOperation runs s3bench through the object size ladder
func (h *HA) S3WorkloadOperation(ctx context.Context, logPrefix string, account common.S3Account, opts WorkloadOptions) error {
	if err := h.bench.Setup(); err != nil {
		return errors.Wrap(err, "couldn't set up s3bench")
	}
	for _, size := range workload.Sizes(h.cfg.SetupType == common.SetupHW) {
		if err := ctx.Err(); err != nil {
			return err
		}
		logPath, err := h.bench.Run(account, logPrefix, workload.S3BenchOptions{
			Bucket:       "bucket-" + logPrefix,
			ObjectPrefix: "ha_" + logPrefix,
			ObjectSize:   size,
			Clients:      opts.Clients,
			Samples:      opts.Samples,
			SkipRead:     opts.SkipRead,
			SkipWrite:    opts.SkipWrite,
			SkipCleanup:  opts.SkipCleanup,
		})
		if err != nil {
			return err
		}
		if err = workload.CheckLogFile(logPath); err != nil {
			return errors.Wrapf(err, "s3bench failed for size %s", size)
		}
	}
	logf.Log.Info("s3bench workload complete", "prefix", logPrefix)
	return nil
}
