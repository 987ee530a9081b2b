package server

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of the CBOR codec for both Connect
// ("application/cbor") and gRPC ("application/grpc+cbor").
const CodecName = "cbor"

// cborCodec satisfies connect.Codec and grpc encoding.Codec.
type cborCodec struct{}

func (cborCodec) Name() string { return CodecName }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(cborCodec{})
}
