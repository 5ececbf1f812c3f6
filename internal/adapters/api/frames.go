package api

import (
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameType tags relay websocket frames.
type FrameType string

const (
	FrameHello      FrameType = "hello"
	FrameWelcome    FrameType = "welcome"
	FrameData       FrameType = "data"
	FramePeerJoined FrameType = "peer_joined"
	FramePeerLeft   FrameType = "peer_left"
	FrameError      FrameType = "error"
)

// Frame is one binary message on the relay websocket.
type Frame struct {
	Type           FrameType           `msgpack:"t"`
	AllocationID   domain.AllocationID `msgpack:"a,omitempty"`
	ConnectionData []byte              `msgpack:"c,omitempty"`
	Signature      []byte              `msgpack:"s,omitempty"`
	From           domain.AllocationID `msgpack:"f,omitempty"`
	To             domain.AllocationID `msgpack:"to,omitempty"`
	Role           domain.Role         `msgpack:"r,omitempty"`
	Payload        []byte              `msgpack:"p,omitempty"`
	Error          string              `msgpack:"e,omitempty"`
}

func EncodeFrame(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(b, &f)
	return f, err
}
