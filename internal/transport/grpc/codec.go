package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated as the content-subtype: application/grpc+json.
const codecName = "json"

// ContentSubtype is the call option value clients pass to reach Dispatch.
const ContentSubtype = codecName

// jsonCodec carries message.Request and message.Response as JSON so the
// service needs no generated protobuf types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
