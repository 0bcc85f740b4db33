package lua

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/zzfab/respkit/protocol"
)

// CallFunc executes a command issued by a script through redis.call or
// redis.pcall. ctx is the context the script runs under.
type CallFunc func(ctx context.Context, cmd *protocol.Command) (protocol.Value, error)

// ReplyError is an error reply produced by a script, either through an
// {err=...} table or a missing script. Its message already carries the
// error code.
type ReplyError struct {
	Msg string
}

// Error implements the error interface
func (e *ReplyError) Error() string {
	return e.Msg
}

// ErrNoScript is returned by EvalSHA for unknown hashes
var ErrNoScript = &ReplyError{Msg: "NOSCRIPT No matching script. Please use EVAL."}

// Engine provides Redis-compatible Lua script execution
type Engine struct {
	call    CallFunc
	scripts sync.Map // map[string]string - SHA1 -> script content
}

// NewEngine creates a new Lua execution engine. call may be nil, in which
// case every redis.call fails.
func NewEngine(call CallFunc) *Engine {
	return &Engine{
		call: call,
	}
}

// Eval executes a Lua script with the given keys and arguments and returns
// its first return value as a RESP value. The script is aborted with an
// error once ctx is done.
func (e *Engine) Eval(ctx context.Context, script string, keys []string, args []string) (protocol.Value, error) {
	L := newState()
	defer L.Close()

	if ctx.Done() != nil {
		L.SetContext(ctx)
	}

	e.setupRedisAPI(L, keys, args)

	if err := L.DoString(script); err != nil {
		return protocol.Value{}, fmt.Errorf("script execution error: %w", err)
	}

	if L.GetTop() == 0 {
		return protocol.Null(), nil
	}
	return toValue(L.Get(1), 0)
}

// EvalSHA executes a previously loaded script by its SHA1 hash
func (e *Engine) EvalSHA(ctx context.Context, hash string, keys []string, args []string) (protocol.Value, error) {
	script, exists := e.scripts.Load(strings.ToLower(hash))
	if !exists {
		return protocol.Value{}, ErrNoScript
	}

	return e.Eval(ctx, script.(string), keys, args)
}

// LoadScript loads a script and returns its SHA1 hash
func (e *Engine) LoadScript(script string) string {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))
	e.scripts.Store(hash, script)
	return hash
}

// ScriptExists checks if scripts with given SHA1 hashes exist
func (e *Engine) ScriptExists(hashes []string) []bool {
	results := make([]bool, len(hashes))
	for i, hash := range hashes {
		_, exists := e.scripts.Load(strings.ToLower(hash))
		results[i] = exists
	}
	return results
}

// ScriptFlush removes all cached scripts
func (e *Engine) ScriptFlush() {
	e.scripts.Range(func(key, value interface{}) bool {
		e.scripts.Delete(key)
		return true
	})
}

// newState returns a state with only the base, table, string and math
// libraries loaded
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// setupRedisAPI configures the Lua state with Redis-compatible functions
func (e *Engine) setupRedisAPI(L *lua.LState, keys []string, args []string) {
	keysTable := L.NewTable()
	for i, key := range keys {
		keysTable.RawSetInt(i+1, lua.LString(key)) // Lua arrays are 1-indexed
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, arg := range args {
		argvTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call":         e.redisCall,
		"pcall":        e.redisPCall,
		"status_reply": statusReply,
		"error_reply":  errorReply,
	})
	L.SetGlobal("redis", redisTable)
}

// redisCall implements redis.call(): command errors abort the script
func (e *Engine) redisCall(L *lua.LState) int {
	result, err := e.executeRedisCommand(L)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(toLua(L, result))
	return 1
}

// redisPCall implements redis.pcall(): command errors are returned as an
// {err=...} table
func (e *Engine) redisPCall(L *lua.LState) int {
	result, err := e.executeRedisCommand(L)
	if err != nil {
		L.Push(replyTable(L, "err", err.Error()))
		return 1
	}
	L.Push(toLua(L, result))
	return 1
}

func statusReply(L *lua.LState) int {
	L.Push(replyTable(L, "ok", L.CheckString(1)))
	return 1
}

func errorReply(L *lua.LState) int {
	L.Push(replyTable(L, "err", L.CheckString(1)))
	return 1
}

// executeRedisCommand builds a command from the call arguments and runs it
func (e *Engine) executeRedisCommand(L *lua.LState) (protocol.Value, error) {
	argc := L.GetTop()
	if argc == 0 {
		return protocol.Value{}, fmt.Errorf("ERR Please specify at least one argument for this redis lib call")
	}

	parts := make([]string, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			parts[i-1] = string(v)
		case lua.LNumber:
			parts[i-1] = v.String()
		default:
			return protocol.Value{}, fmt.Errorf("ERR Lua redis lib command arguments must be strings or integers")
		}
	}

	if e.call == nil {
		return protocol.Value{}, fmt.Errorf("ERR unknown command '%s'", parts[0])
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return e.call(ctx, &protocol.Command{
		Name: strings.ToUpper(parts[0]),
		Args: parts[1:],
	})
}
