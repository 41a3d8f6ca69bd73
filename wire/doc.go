// Package wire encodes and decodes the gateway's request and response
// messages in protobuf binary format.
//
// The schema is equivalent to:
//
//	message Request {
//	  string request     = 1;
//	  string user        = 2;
//	  string password    = 3;
//	  string session_key = 4;
//	  bytes  data        = 5;
//	}
//
//	message Response {
//	  bool  successful = 1;
//	  bytes data       = 2;
//	}
//
//	message Credentials {
//	  string name       = 1;
//	  string password   = 2;
//	  string permission = 3;
//	}
//
// Messages are read with protowire directly so the package carries no
// generated code. Decoding follows proto3 rules: unknown fields are skipped,
// string fields must be valid UTF-8, and a mismatched wire type on a known
// field is an error.
package wire
