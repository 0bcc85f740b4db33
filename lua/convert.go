package lua

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/zzfab/respkit/protocol"
)

// maxConvertDepth bounds table nesting when converting script results
const maxConvertDepth = 64

// toLua converts a RESP value into the Lua value redis.call returns
func toLua(L *lua.LState, v protocol.Value) lua.LValue {
	switch v.Type {
	case protocol.TypeBulkString:
		return lua.LString(v.Str)
	case protocol.TypeSimpleString:
		return replyTable(L, "ok", v.Str)
	case protocol.TypeArray:
		table := L.CreateTable(len(v.Array), 0)
		for i, item := range v.Array {
			table.RawSetInt(i+1, toLua(L, item))
		}
		return table
	default:
		return lua.LFalse // Redis nil becomes false in Lua
	}
}

// toValue converts a script result into a RESP value
func toValue(lv lua.LValue, depth int) (protocol.Value, error) {
	switch v := lv.(type) {
	case lua.LString:
		return protocol.BulkString(string(v)), nil
	case lua.LNumber:
		// Numbers are truncated to integers
		return protocol.BulkString(strconv.FormatInt(int64(v), 10)), nil
	case lua.LBool:
		if v {
			return protocol.BulkString("1"), nil
		}
		return protocol.Null(), nil
	case *lua.LTable:
		return tableToValue(v, depth)
	default:
		return protocol.Null(), nil
	}
}

func tableToValue(t *lua.LTable, depth int) (protocol.Value, error) {
	if depth >= maxConvertDepth {
		return protocol.Value{}, fmt.Errorf("ERR reached lua stack limit")
	}

	if msg, ok := t.RawGetString("err").(lua.LString); ok {
		return protocol.Value{}, &ReplyError{Msg: string(msg)}
	}
	if status, ok := t.RawGetString("ok").(lua.LString); ok {
		return protocol.SimpleString(string(status)), nil
	}

	// Array part up to the first nil, as Redis does
	var items []protocol.Value
	for i := 1; ; i++ {
		item := t.RawGetInt(i)
		if item == lua.LNil {
			break
		}
		v, err := toValue(item, depth+1)
		if err != nil {
			return protocol.Value{}, err
		}
		items = append(items, v)
	}
	return protocol.Array(items...), nil
}

func replyTable(L *lua.LState, field, msg string) *lua.LTable {
	table := L.NewTable()
	table.RawSetString(field, lua.LString(msg))
	return table
}
