package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Encoding names accepted in the ?encoding= query parameter.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

var errEmptyEvent = errors.New("missing event name")

// codec converts envelopes to and from websocket frames. decode returns the
// event name and a function that unpacks the data field into v.
type codec interface {
	messageType() int
	encode(event string, data any) ([]byte, error)
	decode(msg []byte) (string, func(v any) error, error)
}

func codecFor(encoding string) (codec, error) {
	switch encoding {
	case "", EncodingJSON:
		return jsonCodec{}, nil
	case EncodingMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) messageType() int { return websocket.TextMessage }

func (jsonCodec) encode(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{event, data})
}

func (jsonCodec) decode(msg []byte) (string, func(v any) error, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return "", nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return "", nil, errEmptyEvent
	}
	return env.Event, func(v any) error {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		return json.Unmarshal(env.Data, v)
	}, nil
}

type msgpackEnvelope struct {
	Event string             `msgpack:"event"`
	Data  msgpack.RawMessage `msgpack:"data"`
}

// msgpackCodec falls back to json tags so payload types need no second set
// of field names.
type msgpackCodec struct{}

func (msgpackCodec) messageType() int { return websocket.BinaryMessage }

func (msgpackCodec) encode(event string, data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(struct {
		Event string `msgpack:"event"`
		Data  any    `msgpack:"data"`
	}{event, data})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) decode(msg []byte) (string, func(v any) error, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(msg, &env); err != nil {
		return "", nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return "", nil, errEmptyEvent
	}
	return env.Event, func(v any) error {
		if len(env.Data) == 0 || (len(env.Data) == 1 && env.Data[0] == msgpcode.Nil) {
			return nil
		}
		dec := msgpack.NewDecoder(bytes.NewReader(env.Data))
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}, nil
}
