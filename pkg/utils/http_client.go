package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent 出站请求 UA
const DefaultUserAgent = "reseller-hub/1.0"

// NewHTTPClient 统一的出站 HTTP 客户端（超时、UA、失败重试）
func NewHTTPClient(timeout time.Duration, retries int) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", DefaultUserAgent).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
}
