// Package respkit is a toolkit for the Redis Serialization Protocol (RESP).
//
// The module is organised in the following packages:
//
//   - protocol: the RESP value model, a bounded frame decoder, an
//     encoder and a Stream adapter that reads frames from partial network reads
//   - lua: Redis-compatible Lua scripting over RESP values
//   - server: a small RESP server answering PING, ECHO, INFO and the
//     scripting commands
//
// Basic decoding:
//
//	v, n, err := protocol.Decode([]byte("*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(v, n) // [ECHO, hi] 22
//
// Serving RESP over TCP:
//
//	srv, err := server.New(server.WithAddr(":6380"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
//
// The cmd/respd binary wraps the server with file and environment
// configuration, and cmd/respdump prints the frames found in a capture.
package respkit
