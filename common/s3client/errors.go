package s3client

import (
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// ErrorCode returns the S3 error code carried by err, "" for other errors
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// StatusCode returns the HTTP status of a failed request, 0 if there was no response
func StatusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// IsIAMUnsupported reports whether the gateway refuses the IAM user API for
// this account, as RGW does for users that are not IAM accounts
func IsIAMUnsupported(err error) bool {
	switch ErrorCode(err) {
	case "MethodNotAllowed", "NotImplemented", "InvalidAction":
		return true
	}
	switch StatusCode(err) {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// IsAccessDenied reports whether the request was refused for lack of permission
func IsAccessDenied(err error) bool {
	return ErrorCode(err) == "AccessDenied" || StatusCode(err) == http.StatusForbidden
}
