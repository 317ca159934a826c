// Package state keeps per-chat conversation sessions for Telegram bots and
// dispatches text updates to the handler registered for the chat's state.
package state
