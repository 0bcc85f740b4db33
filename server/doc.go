// Package server implements a RESP server on top of the protocol package.
//
// Each connection gets its own protocol.Stream, so pipelined requests are
// answered in order without extra reads. The server understands PING, ECHO,
// QUIT, COMMAND and INFO, plus Lua scripting through EVAL, EVALSHA and
// SCRIPT. A request that is not a RESP frame closes the connection after an
// error reply. Requests that decode but are not arrays of bulk strings get an
// error reply and the connection stays open.
//
// Basic usage:
//
//	srv, err := server.New(
//		server.WithAddr(":6380"),
//		server.WithReadTimeout(time.Minute),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
package server
