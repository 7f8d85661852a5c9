package k8stest

import (
	"bytes"
	"context"

	errors "github.com/pkg/errors"
	coreV1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// ExecInPod runs cmd in a container of a pod and returns stdout and stderr
func ExecInPod(ctx context.Context, ns, podName, container string, cmd []string) (string, string, error) {
	logf.Log.Info("Exec in pod", "pod", podName, "container", container, "cmd", cmd)
	req := gTestEnv.KubeInt.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(ns).
		SubResource("exec").
		VersionedParams(&coreV1.PodExecOptions{
			Container: container,
			Command:   cmd,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(gTestEnv.Cfg, "POST", req.URL())
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to create executor for %s", podName)
	}
	var stdout, stderr bytes.Buffer
	err = exec.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return stdout.String(), stderr.String(), errors.Wrapf(err, "%v in %s/%s: %s", cmd, podName, container, stderr.String())
	}
	return stdout.String(), stderr.String(), nil
}
