package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"cortx-e2e/common"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/k8stest"
	"cortx-e2e/common/platform"
)

// newHA builds the helpers against the configured cluster, replaced in tests
var newHA = func() (*ha.HA, error) {
	if err := k8stest.ConnectCluster(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to the cluster")
	}
	return ha.NewFromConfig()
}

func withHA(fn func(ctx context.Context, h *ha.HA) error) error {
	h, err := newHA()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	return fn(ctx, h)
}

type hostOptions struct {
	Host string `long:"host" required:"true" description:"node hostname as known to the platform"`
}

type powerOnCommand struct {
	hostOptions
}

func (c *powerOnCommand) Execute(_ []string) error {
	return withHA(func(ctx context.Context, h *ha.HA) error {
		up, err := h.HostPowerOn(ctx, c.Host)
		if err != nil {
			return err
		}
		if !up {
			return fmt.Errorf("%s did not come up", c.Host)
		}
		log.WithField("host", c.Host).Info("host is up")
		return nil
	})
}

type powerOffCommand struct {
	hostOptions
	Safe bool `long:"safe" description:"shut down through the node agent instead of cutting power"`
}

func (c *powerOffCommand) Execute(_ []string) error {
	return withHA(func(ctx context.Context, h *ha.HA) error {
		down, err := h.HostSafeUnsafePowerOff(ctx, c.Host, c.Safe)
		if err != nil {
			return err
		}
		if !down {
			return fmt.Errorf("%s is still reachable", c.Host)
		}
		log.WithFields(log.Fields{"host": c.Host, "safe": c.Safe}).Info("host is down")
		return nil
	})
}

type statusCommand struct {
	Host string `long:"host" description:"also report reachability of this node"`
	Pods int    `long:"pods" description:"number of data pods expected online, 0 skips the check"`
}

func (c *statusCommand) Execute(_ []string) error {
	return withHA(func(ctx context.Context, h *ha.HA) error {
		if c.Host != "" {
			state, err := platform.Create().GetNodeStatus(c.Host)
			if err != nil {
				return errors.Wrapf(err, "failed to get power state of %s", c.Host)
			}
			log.WithFields(log.Fields{
				"host":      c.Host,
				"power":     state,
				"reachable": platform.Ping(c.Host),
			}).Info("host status")
		}
		if c.Pods > 0 {
			if err := h.StatusPodsOnline(ctx, c.Pods); err != nil {
				return err
			}
			log.WithField("pods", c.Pods).Info("pods online")
		}
		if err := h.StatusClusterResourceOnline(ctx); err != nil {
			return err
		}
		log.Info("cluster resource online")
		return nil
	})
}

type restartCommand struct {
	Pods int `long:"pods" description:"number of data pods expected online after the restart, 0 skips the check"`
}

func (c *restartCommand) Execute(_ []string) error {
	return withHA(func(ctx context.Context, h *ha.HA) error {
		if err := h.RestartCluster(ctx); err != nil {
			return err
		}
		if c.Pods > 0 {
			if err := h.StatusPodsOnline(ctx, c.Pods); err != nil {
				return err
			}
		}
		log.Info("cluster restarted")
		return nil
	})
}

type s3benchCommand struct {
	Prefix      string `long:"prefix" default:"hactl" description:"log and bucket name prefix"`
	AccessKey   string `long:"access-key" required:"true" description:"S3 access key"`
	SecretKey   string `long:"secret-key" required:"true" description:"S3 secret key"`
	Clients     int    `long:"clients" default:"10" description:"parallel clients per pass"`
	Samples     int    `long:"samples" default:"20" description:"objects per pass"`
	SkipCleanup bool   `long:"skip-cleanup" description:"leave the objects in place"`
}

func (c *s3benchCommand) account() common.S3Account {
	return common.S3Account{AccessKey: c.AccessKey, SecretKey: c.SecretKey}
}

func (c *s3benchCommand) Execute(_ []string) error {
	return withHA(func(ctx context.Context, h *ha.HA) error {
		err := h.S3WorkloadOperation(ctx, c.Prefix, c.account(), ha.WorkloadOptions{
			Clients:     c.Clients,
			Samples:     c.Samples,
			SkipCleanup: c.SkipCleanup,
		})
		if err != nil {
			return err
		}
		log.WithField("prefix", c.Prefix).Info("s3bench passes completed")
		return nil
	})
}
