// Package jsoncodec lets Connect handlers exchange plain Go structs as JSON.
package jsoncodec

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Name is the codec name negotiated for application/json requests.
const Name = "json"

// Codec marshals messages with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return Name }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements connect.Codec. An empty body leaves v untouched.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// HandlerOption registers the codec on a Connect handler.
func HandlerOption() connect.HandlerOption {
	return connect.WithCodec(Codec{})
}

// ClientOption makes a Connect client send requests with the codec.
func ClientOption() connect.ClientOption {
	return connect.WithCodec(Codec{})
}
