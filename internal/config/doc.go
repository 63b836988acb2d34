// Package config handles configuration loading for taskbridge.
//
// # Configuration File
//
// The file is YAML unless its name ends in .toml. Default location:
//
//  1. Path from the --config flag
//  2. Path from TASKBRIDGE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/taskbridge/config.yaml (~/.config/taskbridge/config.yaml)
//
// # Environment Variable Expansion
//
// Values can reference environment variables, which keeps tokens out of
// the file:
//
//	mattermost:
//	  url: "${MM_URL}"
//	  bot_token: "${MM_BOT_TOKEN}"
//	yougile:
//	  api_key: "${YOUGILE_API_KEY}"
//	  company_id: "${YOUGILE_COMPANY_ID}"
//
// Unset variables expand to the empty string.
//
// # Durations
//
// Timing fields under session (idle_timeout, sweep_interval,
// request_timeout, callback_timeout) and auth.card_ttl take Go duration
// strings such as "30s" or "5m".
package config
