// Package config loads toolproxy settings from YAML and TOOLPROXY_*
// environment variables.
//
// Environment variables override the file; nested keys join with an
// underscore, so breaker.reset_timeout is TOOLPROXY_BREAKER_RESET_TIMEOUT.
// Durations use Go syntax ("10s", "1m").
//
// Role names are case-insensitive and stored in lower case. Without a roles
// section the reference table applies: admin may invoke report, premium may
// invoke image, free may invoke payment.
package config
