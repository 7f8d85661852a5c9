package k8stest

import (
	"context"
	"fmt"
	"strings"

	errors "github.com/pkg/errors"
	coreV1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// ListPod return list of pods in the given namespace
func ListPod(ns string) (*coreV1.PodList, error) {
	pods, err := gTestEnv.KubeInt.CoreV1().Pods(ns).List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list pods in %s", ns)
	}
	return pods, nil
}

// anyPodUp is true when at least one pod is Running or has Completed
func anyPodUp(pods []coreV1.Pod) bool {
	for _, pod := range pods {
		if pod.Status.Phase == coreV1.PodRunning || pod.Status.Phase == coreV1.PodSucceeded {
			return true
		}
	}
	return false
}

// CheckPodStatus returns true if any pod in the namespace is Running or Completed
func CheckPodStatus(ns string) (bool, error) {
	logf.Log.Info("Checking if all Pods are online.", "namespace", ns)
	pods, err := ListPod(ns)
	if err != nil {
		return false, err
	}
	return anyPodUp(pods.Items), nil
}

func unhealthyPods(pods []coreV1.Pod) []string {
	var errorStrings []string
	for _, pod := range pods {
		if pod.Status.Phase == coreV1.PodFailed || pod.Status.Phase == coreV1.PodUnknown {
			errorStrings = append(errorStrings, fmt.Sprintf("%s phase is %v", pod.Name, pod.Status.Phase))
		}
	}
	return errorStrings
}

// CheckPodsHealth fails if a pod in the namespace is in a failed or unknown phase
func CheckPodsHealth(namespace string) error {
	podList, err := ListPod(namespace)
	if err != nil {
		return err
	}
	errorStrings := unhealthyPods(podList.Items)
	if len(errorStrings) != 0 {
		logf.Log.Info("Unhealthy pods", "namespace", namespace, "pods", errorStrings)
		return errors.New(strings.Join(errorStrings, "; "))
	}
	return nil
}

// DeleteFailedPods deletes pods in the failed phase and returns how many were deleted
func DeleteFailedPods(namespace string) (int, error) {
	podList, err := ListPod(namespace)
	if err != nil {
		return 0, err
	}
	numDeleted := 0
	for _, pod := range podList.Items {
		if pod.Status.Phase != coreV1.PodFailed {
			continue
		}
		logf.Log.Info("Deleting failed pod", "pod", pod.Name, "namespace", namespace)
		err = gTestEnv.KubeInt.CoreV1().Pods(namespace).Delete(context.TODO(), pod.Name, metaV1.DeleteOptions{})
		if err != nil {
			return numDeleted, err
		}
		numDeleted++
	}
	return numDeleted, nil
}

func firstRunningWithPrefix(pods []coreV1.Pod, prefix string) (string, bool) {
	for _, pod := range pods {
		if strings.HasPrefix(pod.Name, prefix) && pod.Status.Phase == coreV1.PodRunning {
			return pod.Name, true
		}
	}
	return "", false
}

// GetRunningPodWithPrefix returns the name of a running pod whose name starts with prefix
func GetRunningPodWithPrefix(ns, prefix string) (string, error) {
	pods, err := ListPod(ns)
	if err != nil {
		return "", err
	}
	name, ok := firstRunningWithPrefix(pods.Items, prefix)
	if !ok {
		return "", errors.Errorf("no running pod with prefix %s in %s", prefix, ns)
	}
	return name, nil
}
