// Package lua provides Redis-compatible Lua script execution on top of the
// RESP value model.
//
// Scripts run in a fresh sandboxed state per call with KEYS and ARGV
// populated from the caller. Only the base, table, string and math libraries
// are loaded. A script stops with an error once the context passed to Eval
// is done. The redis table exposes:
//   - redis.call() and redis.pcall() for dispatching commands through a CallFunc
//   - redis.status_reply() and redis.error_reply() for building replies
//
// Return values are converted with the Redis rules: strings and numbers
// become bulk strings, {ok=...} becomes a simple string, {err=...} becomes
// an error reply and other tables become arrays up to their first nil.
package lua
