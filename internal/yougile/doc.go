// Package yougile is a minimal client for the YouGile REST API v2.
//
// It covers what the task-creation dialog needs: listing projects, boards,
// columns and users, creating a task, and reading and replacing a task's
// description. Errors for non-2xx responses are *APIError values.
//
// All calls take a context; the bot bounds each one with its configured
// request timeout.
package yougile
