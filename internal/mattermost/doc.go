// Package mattermost adapts the Mattermost model package to the bot: a REST
// client that speaks the bot's own post, user and channel types, and the
// websocket event stream it listens on.
package mattermost
