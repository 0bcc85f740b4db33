package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zzfab/respkit"
	"github.com/zzfab/respkit/lua"
	"github.com/zzfab/respkit/protocol"
)

// call executes cmd and returns its reply. Errors carry the reply message.
// ctx bounds script execution.
func (s *Server) call(ctx context.Context, cmd *protocol.Command) (protocol.Value, error) {
	switch cmd.Name {
	case "PING":
		return s.handlePing(cmd)
	case "ECHO":
		return s.handleEcho(cmd)
	case "COMMAND":
		return protocol.Array(), nil
	case "INFO":
		return protocol.BulkString(s.info()), nil
	case "EVAL":
		return s.handleEval(ctx, cmd)
	case "EVALSHA":
		return s.handleEvalSHA(ctx, cmd)
	case "SCRIPT":
		return s.handleScript(cmd)
	default:
		return protocol.Value{}, fmt.Errorf("ERR unknown command '%s'", strings.ToLower(cmd.Name))
	}
}

// scriptCall dispatches redis.call from scripts
func (s *Server) scriptCall(ctx context.Context, cmd *protocol.Command) (protocol.Value, error) {
	switch cmd.Name {
	case "EVAL", "EVALSHA", "SCRIPT", "QUIT":
		return protocol.Value{}, errors.New("ERR This Redis command is not allowed from script")
	}
	return s.call(ctx, cmd)
}

// replyMessage turns a command error into an error reply
func replyMessage(err error) string {
	var replyErr *lua.ReplyError
	if errors.As(err, &replyErr) {
		return replyErr.Msg
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "ERR ") {
		return msg
	}
	return "ERR " + msg
}

func wrongArgs(name string) error {
	return fmt.Errorf("ERR wrong number of arguments for '%s' command", name)
}

func (s *Server) handlePing(cmd *protocol.Command) (protocol.Value, error) {
	switch len(cmd.Args) {
	case 0:
		return protocol.SimpleString("PONG"), nil
	case 1:
		return protocol.BulkString(cmd.Args[0]), nil
	default:
		return protocol.Value{}, wrongArgs("ping")
	}
}

func (s *Server) handleEcho(cmd *protocol.Command) (protocol.Value, error) {
	if len(cmd.Args) != 1 {
		return protocol.Value{}, wrongArgs("echo")
	}
	return protocol.BulkString(cmd.Args[0]), nil
}

func (s *Server) handleEval(ctx context.Context, cmd *protocol.Command) (protocol.Value, error) {
	if len(cmd.Args) < 2 {
		return protocol.Value{}, wrongArgs("eval")
	}

	keys, args, err := splitKeys(cmd.Args[1:])
	if err != nil {
		return protocol.Value{}, err
	}

	return s.lua.Eval(ctx, cmd.Args[0], keys, args)
}

func (s *Server) handleEvalSHA(ctx context.Context, cmd *protocol.Command) (protocol.Value, error) {
	if len(cmd.Args) < 2 {
		return protocol.Value{}, wrongArgs("evalsha")
	}

	keys, args, err := splitKeys(cmd.Args[1:])
	if err != nil {
		return protocol.Value{}, err
	}

	return s.lua.EvalSHA(ctx, cmd.Args[0], keys, args)
}

// splitKeys parses "numkeys key... arg..."
func splitKeys(rest []string) (keys, args []string, err error) {
	numKeys, err := strconv.Atoi(rest[0])
	if err != nil {
		return nil, nil, errors.New("ERR value is not an integer or out of range")
	}
	if numKeys < 0 {
		return nil, nil, errors.New("ERR Number of keys can't be negative")
	}
	if numKeys > len(rest)-1 {
		return nil, nil, errors.New("ERR Number of keys can't be greater than number of args")
	}

	return rest[1 : 1+numKeys], rest[1+numKeys:], nil
}

func (s *Server) handleScript(cmd *protocol.Command) (protocol.Value, error) {
	if len(cmd.Args) == 0 {
		return protocol.Value{}, wrongArgs("script")
	}

	subCmd := strings.ToUpper(cmd.Args[0])

	switch subCmd {
	case "LOAD":
		if len(cmd.Args) != 2 {
			return protocol.Value{}, wrongArgs("script|load")
		}
		return protocol.BulkString(s.lua.LoadScript(cmd.Args[1])), nil

	case "EXISTS":
		if len(cmd.Args) < 2 {
			return protocol.Value{}, wrongArgs("script|exists")
		}
		results := s.lua.ScriptExists(cmd.Args[1:])

		items := make([]protocol.Value, len(results))
		for i, exists := range results {
			if exists {
				items[i] = protocol.BulkString("1")
			} else {
				items[i] = protocol.BulkString("0")
			}
		}
		return protocol.Array(items...), nil

	case "FLUSH":
		if len(cmd.Args) != 1 {
			return protocol.Value{}, wrongArgs("script|flush")
		}
		s.lua.ScriptFlush()
		return protocol.SimpleString("OK"), nil

	default:
		return protocol.Value{}, fmt.Errorf("ERR unknown subcommand '%s'. Try SCRIPT HELP.", strings.ToLower(subCmd))
	}
}

// info renders the INFO reply
func (s *Server) info() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var uptime int64
	if !s.startTime.IsZero() {
		uptime = int64(time.Since(s.startTime).Seconds())
	}

	var b strings.Builder
	b.WriteString("# Server\r\n")
	fmt.Fprintf(&b, "respkit_version:%s\r\n", respkit.Version)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", uptime)
	b.WriteString("\r\n# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", s.clientCount())
	b.WriteString("\r\n# Stats\r\n")
	fmt.Fprintf(&b, "total_connections_received:%d\r\n", s.connCount)
	fmt.Fprintf(&b, "total_commands_processed:%d\r\n", s.commandCount)
	fmt.Fprintf(&b, "total_error_replies:%d\r\n", s.errorCount)
	return b.String()
}
