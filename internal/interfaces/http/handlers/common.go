// Package handlers implements the gin handlers of the HTTP API.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/interfaces/http/middleware"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// Page size bounds of list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// respond writes data in the success envelope.
func respond[T any](c *gin.Context, status int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// respondError maps err to its HTTP status and writes the error envelope.
// Server-side failures get the code's default message instead of the error
// text.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = errors.DefaultMessageForCode(code)
	}
	resp := common.NewErrorResponse(string(code), msg)
	resp.RequestID = middleware.GetRequestID(c)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func kindParam(c *gin.Context) (record.Kind, error) {
	return record.ParseKind(c.Param("kind"))
}

// parseHashes reads every "hash" query value. A value may itself hold a
// comma-separated list.
func parseHashes(values []string) ([]int64, error) {
	var hashes []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			h, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, errors.InvalidParam("hash must be a signed 64-bit integer").WithDetail("hash=" + part)
			}
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func parseSize(s string) (int, error) {
	if s == "" {
		return DefaultPageSize, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.InvalidParam("size must be a positive integer").WithDetail("size=" + s)
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	return n, nil
}

//Personal.AI order the ending
