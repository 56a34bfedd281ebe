// Package adminpb carries the wire types and gRPC service descriptor
// for the operator control plane, in the same generated-stub shape as
// the teacher's servo package's ControllerServer/MoveRequest (the
// teacher's own servo.pb.go was never retrieved alongside it, so this
// follows protoc-gen-go's well-known output layout by hand).
//
// There is no .proto/protoc pipeline available here, so rather than
// fabricate a fake compiled file descriptor this package registers a
// small JSON grpc codec instead of depending on google.golang.org/
// protobuf's generated-message machinery — see DESIGN.md.
package adminpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
