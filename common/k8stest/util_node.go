package k8stest

// Utility functions for manipulation of nodes.
import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	coreV1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type NodeLocation struct {
	NodeName   string
	IPAddress  string
	MasterNode bool
}

func isMasterNode(node *coreV1.Node) bool {
	for label := range node.Labels {
		if label == "node-role.kubernetes.io/master" || label == "node-role.kubernetes.io/control-plane" {
			return true
		}
	}
	return false
}

// returns vector of populated NodeLocation structs
func GetNodeLocs() ([]NodeLocation, error) {
	nodeList := coreV1.NodeList{}

	if gTestEnv.K8sClient.List(context.TODO(), &nodeList, &client.ListOptions{}) != nil {
		return nil, errors.New("failed to list nodes")
	}
	return nodeLocations(nodeList.Items)
}

func nodeLocations(nodes []coreV1.Node) ([]NodeLocation, error) {
	NodeLocs := make([]NodeLocation, 0, len(nodes))
	for i := range nodes {
		k8snode := &nodes[i]
		addrstr := ""
		namestr := ""
		for _, addr := range k8snode.Status.Addresses {
			if addr.Type == coreV1.NodeInternalIP {
				addrstr = addr.Address
			}
			if addr.Type == coreV1.NodeHostName {
				namestr = addr.Address
			}
		}
		if namestr != "" && addrstr != "" {
			NodeLocs = append(NodeLocs, NodeLocation{
				NodeName:   namestr,
				IPAddress:  addrstr,
				MasterNode: isMasterNode(k8snode),
			})
		} else {
			return nil, errors.New("node lacks expected fields")
		}
	}
	return NodeLocs, nil
}

// matchHost compares a configured host name with a k8s node name, either may be fully qualified
func matchHost(host, nodeName string) bool {
	if host == nodeName {
		return true
	}
	return strings.Split(host, ".")[0] == strings.Split(nodeName, ".")[0]
}

func findNodeAddress(locs []NodeLocation, host string) (string, error) {
	for _, loc := range locs {
		if matchHost(host, loc.NodeName) || host == loc.IPAddress {
			return loc.IPAddress, nil
		}
	}
	return "", fmt.Errorf("node %s not found in the cluster", host)
}

// GetNodeAddress returns the internal IP address of the k8s node for host
func GetNodeAddress(host string) (string, error) {
	locs, err := GetNodeLocs()
	if err != nil {
		return "", err
	}
	return findNodeAddress(locs, host)
}

// GetMasterNodeAddress returns the address of the first control plane node
func GetMasterNodeAddress() (string, error) {
	locs, err := GetNodeLocs()
	if err != nil {
		return "", err
	}
	for _, loc := range locs {
		if loc.MasterNode {
			return loc.IPAddress, nil
		}
	}
	return "", errors.New("no master node found")
}

func AreNodesReady() (bool, error) {
	nodes, err := gTestEnv.KubeInt.CoreV1().Nodes().List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return false, err
	}
	for _, node := range nodes.Items {
		readyStatus, err := IsNodeReady(node.Name, &node)
		if err != nil {
			return false, err
		}
		if !readyStatus {
			return false, nil
		}
	}
	return true, nil
}

func IsNodeReady(nodeName string, node *coreV1.Node) (bool, error) {
	var err error
	if node == nil {
		node, err = gTestEnv.KubeInt.CoreV1().Nodes().Get(context.TODO(), nodeName, metaV1.GetOptions{})
		if err != nil {
			return false, err
		}
	}
	if nodeReady(node) {
		return true, nil
	}
	addrs := node.Status.Addresses
	nodeAddr := ""
	for _, addr := range addrs {
		if addr.Type == coreV1.NodeInternalIP {
			nodeAddr = addr.Address
		}
	}
	logf.Log.Info("Node not ready", "node", nodeName, "address", nodeAddr)
	return false, nil
}

func nodeReady(node *coreV1.Node) bool {
	for _, nodeCond := range node.Status.Conditions {
		if nodeCond.Type == coreV1.NodeReady {
			return nodeCond.Status == coreV1.ConditionTrue
		}
	}
	return false
}

func nodeNameFor(host string) (string, error) {
	locs, err := GetNodeLocs()
	if err != nil {
		return "", err
	}
	for _, loc := range locs {
		if matchHost(host, loc.NodeName) {
			return loc.NodeName, nil
		}
	}
	return "", fmt.Errorf("node %s not found in the cluster", host)
}

// WaitForNodeReady polls until the k8s node of host reports ready or the timeout expires
func WaitForNodeReady(host string, timeoutSecs int) bool {
	const sleepTime = 10
	for ix := 0; ix < (timeoutSecs+sleepTime-1)/sleepTime; ix++ {
		if nodeName, err := nodeNameFor(host); err == nil {
			ready, err := IsNodeReady(nodeName, nil)
			if err == nil && ready {
				return true
			}
		}
		time.Sleep(sleepTime * time.Second)
	}
	return false
}
