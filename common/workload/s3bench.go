package workload

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/platform/types"
)

// SizeLadder is the object sizes run by every s3bench workload
var SizeLadder = []string{
	"0B", "1KB", "16KB", "32KB", "64KB", "128KB", "256KB", "512KB",
	"1MB", "4MB", "8MB", "16MB", "32MB", "64MB", "128MB", "256MB", "512MB",
}

// HWSizeLadder is appended to SizeLadder on bare metal
var HWSizeLadder = []string{"1GB", "2GB", "3GB", "4GB", "5GB"}

// Sizes returns the object sizes for the setup
func Sizes(hw bool) []string {
	sizes := append([]string{}, SizeLadder...)
	if hw {
		sizes = append(sizes, HWSizeLadder...)
	}
	return sizes
}

// log lines that mark a failed run
var s3benchFailures = []string{
	"with error ", "panic", "status code", "exit status 2", "InternalError", "ServiceUnavailable",
}

var errorsCount = regexp.MustCompile(`Errors Count:\s+(\d+)`)

type S3BenchOptions struct {
	Bucket       string
	ObjectPrefix string
	ObjectSize   string
	Clients      int
	Samples      int
	SkipRead     bool
	SkipWrite    bool
	SkipCleanup  bool
}

type S3Bench struct {
	Path     string
	Endpoint string
	Region   string
	LogDir   string
	run      types.CommandRunner
	lookPath func(string) (string, error)
}

func NewS3Bench(path, endpoint, region, logDir string) *S3Bench {
	return NewS3BenchWithRunner(path, endpoint, region, logDir, types.ExecRunner)
}

func NewS3BenchWithRunner(path, endpoint, region, logDir string, run types.CommandRunner) *S3Bench {
	return &S3Bench{
		Path:     path,
		Endpoint: endpoint,
		Region:   region,
		LogDir:   logDir,
		run:      run,
		lookPath: exec.LookPath,
	}
}

// Setup checks the s3bench binary is available and the log directory exists
func (b *S3Bench) Setup() error {
	if _, err := b.lookPath(b.Path); err != nil {
		return errors.Wrapf(err, "s3bench not found at %s", b.Path)
	}
	return errors.Wrap(os.MkdirAll(b.LogDir, 0755), "failed to create s3bench log dir")
}

func (b *S3Bench) args(account common.S3Account, opts S3BenchOptions) []string {
	args := []string{
		"-accessKey", account.AccessKey,
		"-accessSecret", account.SecretKey,
		"-bucket", opts.Bucket,
		"-endpoint", b.Endpoint,
		"-region", b.Region,
		"-numClients", strconv.Itoa(opts.Clients),
		"-numSamples", strconv.Itoa(opts.Samples),
		"-objectNamePrefix", opts.ObjectPrefix,
		"-objectSize", opts.ObjectSize,
	}
	if opts.SkipWrite {
		args = append(args, "-skipWrite")
	}
	if opts.SkipRead {
		args = append(args, "-skipRead")
	}
	if opts.SkipCleanup {
		args = append(args, "-skipCleanup")
	}
	return args
}

// Run executes one s3bench pass and writes its output to a log file under
// LogDir, returning the log path
func (b *S3Bench) Run(account common.S3Account, logPrefix string, opts S3BenchOptions) (string, error) {
	size, err := units.RAMInBytes(opts.ObjectSize)
	if err != nil {
		return "", errors.Wrapf(err, "invalid object size %q", opts.ObjectSize)
	}
	logf.Log.Info("Running s3bench", "bucket", opts.Bucket, "objectSize", opts.ObjectSize, "bytes", size,
		"clients", opts.Clients, "samples", opts.Samples)
	out, runErr := b.run(b.Path, b.args(account, opts)...)
	logPath := filepath.Join(b.LogDir, "log_"+logPrefix+"_"+opts.ObjectSize+".log")
	if err = os.WriteFile(logPath, out, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write s3bench log %s", logPath)
	}
	if runErr != nil {
		return logPath, errors.Wrapf(runErr, "s3bench failed, log %s", logPath)
	}
	return logPath, nil
}

// LogErrors returns the lines of an s3bench log that report a failure
func LogErrors(log []byte) []string {
	var failed []string
	scanner := bufio.NewScanner(bytes.NewReader(log))
	for scanner.Scan() {
		line := scanner.Text()
		if m := errorsCount.FindStringSubmatch(line); m != nil {
			if m[1] != "0" {
				failed = append(failed, strings.TrimSpace(line))
			}
			continue
		}
		for _, marker := range s3benchFailures {
			if strings.Contains(line, marker) {
				failed = append(failed, strings.TrimSpace(line))
				break
			}
		}
	}
	return failed
}

// CheckLogFile fails when the s3bench log at path reports an error
func CheckLogFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read s3bench log %s", path)
	}
	if failed := LogErrors(data); len(failed) != 0 {
		return errors.Errorf("s3bench log %s reports errors: %s", path, strings.Join(failed, "; "))
	}
	return nil
}
