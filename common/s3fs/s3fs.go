package s3fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/mount-utils"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/platform/types"
)

// FsType is the file system type of an s3fs mount in the mount table
const FsType = "fuse.s3fs"

type Options struct {
	Tool               string
	PasswdFile         string
	URL                string
	DbgLevel           string
	NoCheckCertificate bool
	SslVerifyHostname  bool
	NoSSCache          bool
}

func OptionsFromConfig() Options {
	cfg := e2e_config.GetConfig()
	return Options{
		Tool:               cfg.S3fs.Tool,
		PasswdFile:         cfg.S3fs.PasswdFile,
		URL:                cfg.S3.Endpoint,
		DbgLevel:           cfg.S3fs.DbgLevel,
		NoCheckCertificate: cfg.S3fs.NoCheckCertificate,
		SslVerifyHostname:  cfg.S3fs.SslVerifyHostname,
		NoSSCache:          cfg.S3fs.NoSSCache,
	}
}

// WritePasswdFile stores the key pair in the s3fs credential format
func WritePasswdFile(path, accessKey, secretKey string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(accessKey+":"+secretKey+"\n"), 0600); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	// WriteFile keeps the mode of an existing file
	return errors.Wrapf(os.Chmod(path, 0600), "failed to set mode of %s", path)
}

// PasswdFileHas reports whether the credential file holds the key pair
func PasswdFileHas(path, accessKey, secretKey string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == accessKey+":"+secretKey {
			return true
		}
	}
	return false
}

// MountArgs builds the s3fs arguments mounting bucket on dir
func (o Options) MountArgs(bucket, dir string) []string {
	args := []string{
		bucket, dir,
		"-o", "passwd_file=" + o.PasswdFile,
		"-o", "url=" + o.URL,
		"-o", "use_path_request_style",
		"-o", "dbglevel=" + o.DbgLevel,
	}
	if o.NoCheckCertificate {
		args = append(args, "-o", "no_check_certificate")
	}
	if o.SslVerifyHostname {
		args = append(args, "-o", "ssl_verify_hostname=2")
	} else {
		args = append(args, "-o", "ssl_verify_hostname=0")
	}
	if o.NoSSCache {
		args = append(args, "-o", "nosscache")
	}
	return args
}

// Command is the s3fs command line as a string, for logs
func (o Options) Command(bucket, dir string) string {
	return fmt.Sprintf("%s %s", o.Tool, strings.Join(o.MountArgs(bucket, dir), " "))
}

type Mounter struct {
	opts    Options
	run     types.CommandRunner
	mounter mount.Interface
}

func NewMounter(opts Options) *Mounter {
	return NewMounterWith(opts, types.ExecRunner, mount.New(""))
}

func NewMounterWith(opts Options, run types.CommandRunner, mounter mount.Interface) *Mounter {
	return &Mounter{opts: opts, run: run, mounter: mounter}
}

// Mount creates dir if needed and mounts bucket on it
func (m *Mounter) Mount(bucket, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create mount dir %s", dir)
	}
	logf.Log.Info("Mounting bucket", "command", m.opts.Command(bucket, dir))
	out, err := m.run(m.opts.Tool, m.opts.MountArgs(bucket, dir)...)
	if err != nil {
		return errors.Wrapf(err, "s3fs mount of %s on %s failed: %s", bucket, dir, string(out))
	}
	mounted, err := m.IsMounted(dir)
	if err != nil {
		return err
	}
	if !mounted {
		return errors.Errorf("%s is not an s3fs mount point after mount", dir)
	}
	return nil
}

// IsMounted reports whether dir is an s3fs mount point
func (m *Mounter) IsMounted(dir string) (bool, error) {
	mps, err := m.mounter.List()
	if err != nil {
		return false, errors.Wrap(err, "failed to list mount points")
	}
	dir = filepath.Clean(dir)
	for _, mp := range mps {
		if filepath.Clean(mp.Path) == dir && mp.Type == FsType {
			return true, nil
		}
	}
	return false, nil
}

func (m *Mounter) Unmount(dir string) error {
	logf.Log.Info("Unmounting", "dir", dir)
	if err := m.mounter.Unmount(dir); err != nil {
		return errors.Wrapf(err, "failed to unmount %s", dir)
	}
	mounted, err := m.IsMounted(dir)
	if err != nil {
		return err
	}
	if mounted {
		return errors.Errorf("%s is still mounted", dir)
	}
	return nil
}
