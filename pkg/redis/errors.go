package redis

import "errors"

var (
	// ErrInvalidConnectionURL wraps redis.ParseURL failures.
	ErrInvalidConnectionURL = errors.New("invalid redis connection url")
	// ErrNotReady is returned when the server does not answer a ping within
	// the configured attempts and timeout.
	ErrNotReady = errors.New("redis did not become ready within the given time period")
	// ErrHealthcheckFailed wraps ping failures from the health-check helper.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
