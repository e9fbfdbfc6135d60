package landmarks

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = (*Frame)(nil)
	_ msgpack.CustomDecoder = (*Frame)(nil)
)

// EncodeMsgpack writes the frame as a plain array of points.
func (f *Frame) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(f.Points)
}

// DecodeMsgpack reads the array form. Nil entries stay missing.
func (f *Frame) DecodeMsgpack(dec *msgpack.Decoder) error {
	var points []*Point
	if err := dec.Decode(&points); err != nil {
		return fmt.Errorf("decoding landmark array: %w", err)
	}
	f.Points = points
	return nil
}
