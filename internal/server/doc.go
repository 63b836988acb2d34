// Package server exposes the HTTP endpoint the chat server posts card
// clicks to, together with liveness and readiness checks.
package server
