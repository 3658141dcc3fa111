// Package transport defines the outbound push port used by the dispatcher.
//
// Adapters live in subpackages:
//   - pushover: Pushover messages API (default)
//   - telegram: Telegram Bot API via telebot
//   - console: logs pushes instead of sending them
package transport
