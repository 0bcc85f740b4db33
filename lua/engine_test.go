package lua

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zzfab/respkit/protocol"
)

// echoCall answers PING and ECHO, and fails everything else
func echoCall(_ context.Context, cmd *protocol.Command) (protocol.Value, error) {
	switch cmd.Name {
	case "PING":
		return protocol.SimpleString("PONG"), nil
	case "ECHO":
		if len(cmd.Args) != 1 {
			return protocol.Value{}, errors.New("ERR wrong number of arguments for 'echo' command")
		}
		return protocol.BulkString(cmd.Args[0]), nil
	case "NIL":
		return protocol.Null(), nil
	case "LIST":
		return protocol.Array(protocol.BulkString("a"), protocol.Null(), protocol.BulkString("c")), nil
	default:
		return protocol.Value{}, errors.New("ERR unknown command '" + strings.ToLower(cmd.Name) + "'")
	}
}

func TestLuaEngine_BasicExecution(t *testing.T) {
	engine := NewEngine(echoCall)

	tests := []struct {
		name     string
		script   string
		keys     []string
		args     []string
		expected protocol.Value
	}{
		{
			name:     "simple return",
			script:   "return 'hello'",
			expected: protocol.BulkString("hello"),
		},
		{
			name:     "return number",
			script:   "return 42",
			expected: protocol.BulkString("42"),
		},
		{
			name:     "number is truncated",
			script:   "return 3.99",
			expected: protocol.BulkString("3"),
		},
		{
			name:     "no return",
			script:   "local x = 1",
			expected: protocol.Null(),
		},
		{
			name:     "access KEYS",
			script:   "return KEYS[1]",
			keys:     []string{"mykey"},
			expected: protocol.BulkString("mykey"),
		},
		{
			name:     "access ARGV",
			script:   "return ARGV[1]",
			args:     []string{"myarg"},
			expected: protocol.BulkString("myarg"),
		},
		{
			name:     "concatenate KEYS and ARGV",
			script:   "return KEYS[1] .. ':' .. ARGV[1]",
			keys:     []string{"user"},
			args:     []string{"123"},
			expected: protocol.BulkString("user:123"),
		},
		{
			name:     "first of multiple returns",
			script:   "return 'a', 'b'",
			expected: protocol.BulkString("a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(context.Background(), tt.script, tt.keys, tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestLuaEngine_RedisCommands(t *testing.T) {
	engine := NewEngine(echoCall)

	tests := []struct {
		name     string
		script   string
		args     []string
		expected protocol.Value
	}{
		{
			name:     "status reply becomes ok table",
			script:   "local r = redis.call('PING'); return r.ok",
			expected: protocol.BulkString("PONG"),
		},
		{
			name:     "status reply round trips",
			script:   "return redis.call('ping')",
			expected: protocol.SimpleString("PONG"),
		},
		{
			name:     "bulk reply",
			script:   "return redis.call('ECHO', ARGV[1])",
			args:     []string{"hello"},
			expected: protocol.BulkString("hello"),
		},
		{
			name:     "number argument",
			script:   "return redis.call('ECHO', 7)",
			expected: protocol.BulkString("7"),
		},
		{
			name:     "nil reply is false",
			script:   "if redis.call('NIL') == false then return 'nil' end return 'other'",
			expected: protocol.BulkString("nil"),
		},
		{
			name:     "array reply",
			script:   "local r = redis.call('LIST'); return {r[1], tostring(r[2]), r[3]}",
			expected: protocol.Array(protocol.BulkString("a"), protocol.BulkString("false"), protocol.BulkString("c")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(context.Background(), tt.script, nil, tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestLuaEngine_RedisCallError(t *testing.T) {
	engine := NewEngine(echoCall)

	_, err := engine.Eval(context.Background(), "return redis.call('NOPE')", nil, nil)
	if err == nil {
		t.Fatal("expected error from failing redis.call")
	}
	if !strings.Contains(err.Error(), "unknown command 'nope'") {
		t.Errorf("error %q does not carry command failure", err)
	}

	_, err = engine.Eval(context.Background(), "return redis.call()", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "at least one argument") {
		t.Errorf("expected argument error, got %v", err)
	}

	_, err = engine.Eval(context.Background(), "return redis.call('ECHO', {})", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "strings or integers") {
		t.Errorf("expected argument type error, got %v", err)
	}
}

func TestLuaEngine_RedisPCall(t *testing.T) {
	engine := NewEngine(echoCall)

	result, err := engine.Eval(context.Background(), `
		local r = redis.pcall('NOPE')
		if type(r) == 'table' and r.err then
			return 'caught: ' .. r.err
		end
		return 'not caught'
	`, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.Str, "caught: ERR unknown command") {
		t.Errorf("unexpected result %v", result)
	}

	// Returning the pcall table propagates the error reply
	_, err = engine.Eval(context.Background(), "return redis.pcall('NOPE')", nil, nil)
	var replyErr *ReplyError
	if !errors.As(err, &replyErr) {
		t.Fatalf("expected ReplyError, got %v", err)
	}
	if replyErr.Msg != "ERR unknown command 'nope'" {
		t.Errorf("reply error = %q", replyErr.Msg)
	}
}

func TestLuaEngine_NilCall(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Eval(context.Background(), "return redis.call('PING')", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown command 'PING'") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestLuaEngine_ReplyHelpers(t *testing.T) {
	engine := NewEngine(nil)

	result, err := engine.Eval(context.Background(), "return redis.status_reply('FINE')", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Equal(protocol.SimpleString("FINE")) {
		t.Errorf("status_reply = %v", result)
	}

	_, err = engine.Eval(context.Background(), "return redis.error_reply('MYERR broken')", nil, nil)
	var replyErr *ReplyError
	if !errors.As(err, &replyErr) || replyErr.Msg != "MYERR broken" {
		t.Errorf("error_reply = %v", err)
	}
}

func TestLuaEngine_ScriptCaching(t *testing.T) {
	engine := NewEngine(nil)

	script := "return 'cached'"
	sha := engine.LoadScript(script)

	if len(sha) != 40 {
		t.Errorf("expected 40-character SHA1, got %d characters", len(sha))
	}

	result, err := engine.EvalSHA(context.Background(), sha, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Equal(protocol.BulkString("cached")) {
		t.Errorf("expected 'cached', got %v", result)
	}

	// Hashes are case-insensitive
	if _, err := engine.EvalSHA(context.Background(), strings.ToUpper(sha), nil, nil); err != nil {
		t.Errorf("uppercase hash: %v", err)
	}

	_, err = engine.EvalSHA(context.Background(), "0000000000000000000000000000000000000000", nil, nil)
	if !errors.Is(err, ErrNoScript) {
		t.Errorf("expected ErrNoScript, got %v", err)
	}
}

func TestLuaEngine_ScriptExists(t *testing.T) {
	engine := NewEngine(nil)

	sha1 := engine.LoadScript("return 1")
	sha2 := engine.LoadScript("return 2")

	results := engine.ScriptExists([]string{sha1, "nonexistent", sha2})
	expected := []bool{true, false, true}

	if len(results) != len(expected) {
		t.Fatalf("expected %d results, got %d", len(expected), len(results))
	}
	for i, exp := range expected {
		if results[i] != exp {
			t.Errorf("result %d: expected %v, got %v", i, exp, results[i])
		}
	}
}

func TestLuaEngine_ScriptFlush(t *testing.T) {
	engine := NewEngine(nil)

	sha := engine.LoadScript("return 'test'")
	if !engine.ScriptExists([]string{sha})[0] {
		t.Fatal("script should exist after loading")
	}

	engine.ScriptFlush()

	if engine.ScriptExists([]string{sha})[0] {
		t.Error("script should not exist after flush")
	}
}

func TestLuaEngine_DataTypeConversion(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		script   string
		expected protocol.Value
	}{
		{"true", "return true", protocol.BulkString("1")},
		{"false", "return false", protocol.Null()},
		{"nil", "return nil", protocol.Null()},
		{"empty table", "return {}", protocol.Array()},
		{
			name:     "array stops at first nil",
			script:   "return {'a', 'b', nil, 'd'}",
			expected: protocol.Array(protocol.BulkString("a"), protocol.BulkString("b")),
		},
		{
			name:     "mixed array",
			script:   "return {1, 'two', true, {3}}",
			expected: protocol.Array(protocol.BulkString("1"), protocol.BulkString("two"), protocol.BulkString("1"), protocol.Array(protocol.BulkString("3"))),
		},
		{
			name:     "hash part is ignored",
			script:   "return {x = 1, y = 2}",
			expected: protocol.Array(),
		},
		{"function", "return function() end", protocol.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(context.Background(), tt.script, nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestLuaEngine_NestingLimit(t *testing.T) {
	engine := NewEngine(nil)

	script := "local t = 'leaf' for i = 1, 100 do t = {t} end return t"
	if _, err := engine.Eval(context.Background(), script, nil, nil); err == nil {
		t.Error("expected nesting error")
	}

	script = "local t = 'leaf' for i = 1, 10 do t = {t} end return t"
	result, err := engine.Eval(context.Background(), script, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := protocol.Encode(result); err != nil {
		t.Errorf("nested result does not encode: %v", err)
	}
}

func TestLuaEngine_Sandbox(t *testing.T) {
	engine := NewEngine(nil)

	for _, global := range []string{"os", "io", "dofile", "loadfile", "require", "package", "module"} {
		result, err := engine.Eval(context.Background(), "return type("+global+")", nil, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", global, err)
		}
		if result.Str != "nil" {
			t.Errorf("%s is available in scripts: %v", global, result)
		}
	}

	for _, global := range []string{"string", "table", "math"} {
		result, err := engine.Eval(context.Background(), "return type("+global+")", nil, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", global, err)
		}
		if result.Str != "table" {
			t.Errorf("%s missing from scripts: %v", global, result)
		}
	}
}

func TestLuaEngine_ContextCancel(t *testing.T) {
	engine := NewEngine(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := engine.Eval(ctx, "while true do end", nil, nil)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from cancelled script")
		}
		if !strings.Contains(err.Error(), context.DeadlineExceeded.Error()) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("script kept running after its context expired")
	}
}

func TestLuaEngine_CallReceivesContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "client-1")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := NewEngine(func(ctx context.Context, cmd *protocol.Command) (protocol.Value, error) {
		id, _ := ctx.Value(ctxKey{}).(string)
		return protocol.BulkString(id), nil
	})

	result, err := engine.Eval(ctx, "return redis.call('WHO')", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Str != "client-1" {
		t.Errorf("redis.call saw context value %q", result.Str)
	}
}

func TestLuaEngine_ErrorHandling(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name   string
		script string
	}{
		{"syntax error", "return 'unclosed"},
		{"runtime error", "error('boom')"},
		{"index nil", "return nothing.field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Eval(context.Background(), tt.script, nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), "script execution error") {
				t.Errorf("unexpected error format: %v", err)
			}
		})
	}
}
