// Package protocol implements a codec for the Redis Serialization Protocol
// (RESP) restricted to simple strings, bulk strings, arrays and null.
//
// Decode works on a byte buffer and reports how many bytes the decoded value
// occupied, so callers can advance their own buffers:
//
//	v, n, err := protocol.Decode(buf)
//	if protocol.IsIncomplete(err) {
//		// read more bytes and retry
//	}
//	buf = buf[n:]
//
// Encode and AppendValue produce the exact inverse: for every value v that
// encodes without error, Decode(Encode(v)) returns v and len(Encode(v)).
//
// Stream binds the codec to one connection:
//
//	stream := protocol.NewStream(conn, nil)
//	for {
//		value, ok, err := stream.ReadValue()
//		if err != nil || !ok {
//			break
//		}
//		// Process value, then reply
//		stream.WriteValue(protocol.SimpleString("OK"))
//	}
//
// Decoding copies every payload out of the source buffer; decoded values
// never alias it.
package protocol
