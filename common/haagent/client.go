package haagent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"cortx-e2e/common"

	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// RestPort is the port on which ha-agent is listening
var RestPort = common.HAAgentPort

// CmdList is the payload of the exec endpoint
type CmdList struct {
	Cmd string `json:"cmd"`
}

var httpClient = &http.Client{Timeout: 30 * time.Minute}

func agentURL(serverAddr, path string) string {
	return "http://" + serverAddr + ":" + RestPort + path
}

// sendRequest returns the response body, a non 2xx status is an error carrying the body
func sendRequest(ctx context.Context, reqType, url string, data interface{}) (string, error) {
	reqData := new(bytes.Buffer)
	if data != nil {
		if err := json.NewEncoder(reqData).Encode(data); err != nil {
			return "", err
		}
	}
	req, err := http.NewRequestWithContext(ctx, reqType, url, reqData)
	if err != nil {
		return "", err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(bodyBytes), errors.Errorf("%s %s: status %d: %s", reqType, url, resp.StatusCode, bodyBytes)
	}
	return string(bodyBytes), nil
}

// IsAgentReachable checks if the agent pod is reachable
func IsAgentReachable(ctx context.Context, serverAddr string) error {
	_, err := sendRequest(ctx, http.MethodGet, agentURL(serverAddr, "/"), nil)
	return err
}

// SafeShutdown powers the host off through the operating system
func SafeShutdown(ctx context.Context, serverAddr string) error {
	logf.Log.Info("Safe shutdown of node", "addr", serverAddr)
	_, err := sendRequest(ctx, http.MethodPost, agentURL(serverAddr, "/safeShutdown"), nil)
	return err
}

// Exec runs a shell command on the host and returns its combined output
func Exec(ctx context.Context, serverAddr string, cmd string) (string, error) {
	logf.Log.Info("Executing on node", "addr", serverAddr, "cmd", cmd)
	return sendRequest(ctx, http.MethodPost, agentURL(serverAddr, "/exec"), CmdList{Cmd: cmd})
}
