// Package wire defines the UDP datagram formats exchanged between the
// reader process and the in-application receiver. Samples carry device
// state; control messages carry a "type" discriminator.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeHello      = "hello"
	TypeHelloReply = "hello_reply"
	TypePerf       = "perf"
	TypeShutdown   = "shutdown"
)

var (
	// ErrMalformed marks datagrams that do not decode; callers drop them.
	ErrMalformed = errors.New("wire: malformed datagram")
	// ErrUnknownType marks control messages with an unrecognized type.
	ErrUnknownType = errors.New("wire: unknown message type")
)

// Sample is one normalized snapshot of the device axes and buttons.
type Sample struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	RX      float64 `json:"rx"`
	RY      float64 `json:"ry"`
	RZ      float64 `json:"rz"`
	Buttons int     `json:"buttons"`
	Seq     int     `json:"seq"`
	TSendNS int64   `json:"t_send_ns"`
}

// Motion reports whether any axis is nonzero.
func (s Sample) Motion() bool {
	return s.X != 0 || s.Y != 0 || s.Z != 0 || s.RX != 0 || s.RY != 0 || s.RZ != 0
}

// Axis returns the named raw axis value. Unknown names read as zero,
// matching the mapping fallback behavior in the receiver.
func (s Sample) Axis(name string) float64 {
	switch name {
	case "x":
		return s.X
	case "y":
		return s.Y
	case "z":
		return s.Z
	case "rx":
		return s.RX
	case "ry":
		return s.RY
	case "rz":
		return s.RZ
	}
	return 0
}

// Hello is sent by the reader until it learns the host pid.
type Hello struct {
	Type    string `json:"type"`
	Seq     int    `json:"seq"`
	TSendNS int64  `json:"t_send_ns"`
}

// HelloReply is sent by the receiver and carries the host process id the
// reader monitors for auto-exit. The field name is fixed by the protocol.
type HelloReply struct {
	Type    string `json:"type"`
	HostPID int    `json:"houdini_pid"`
	TRecvNS int64  `json:"t_recv_ns"`
}

// Perf carries receiver-side latency/backlog statistics back to the reader
// for its status line. Absent statistics are encoded as null.
type Perf struct {
	Type                string   `json:"type"`
	TRecvNS             int64    `json:"t_recv_ns"`
	LatencyLastMS       *float64 `json:"latency_last_ms"`
	LatencyP50MS        *float64 `json:"latency_p50_ms"`
	LatencyP90MS        *float64 `json:"latency_p90_ms"`
	LatencyP99MS        *float64 `json:"latency_p99_ms"`
	BacklogStepsLast    int      `json:"backlog_steps_last"`
	BacklogStepsMax     int      `json:"backlog_steps_max"`
	SkippedSeq          int      `json:"skipped_seq"`
	ApplyLastMS         *float64 `json:"apply_last_ms"`
	ApplyIntervalLastMS *float64 `json:"apply_interval_last_ms"`
	ApplyHz             *float64 `json:"apply_hz"`
}

// Shutdown requests the peer to terminate.
type Shutdown struct {
	Type    string `json:"type"`
	TSendNS int64  `json:"t_send_ns"`
}

// Message is one decoded datagram: a Sample or one of the control types.
type Message any

type parserFunc func([]byte) (Message, error)

// typedParser converts a concrete message type into a generic parserFunc.
func typedParser[T any]() parserFunc {
	return func(b []byte) (Message, error) {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return v, nil
	}
}

var parserMap = map[string]parserFunc{
	TypeHello:      typedParser[Hello](),
	TypeHelloReply: typedParser[HelloReply](),
	TypePerf:       typedParser[Perf](),
	TypeShutdown:   typedParser[Shutdown](),
}

// Decode classifies and decodes one datagram. A JSON object with a "type"
// field is a control message; any other object is a Sample.
func Decode(b []byte) (Message, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if probe.Type == "" {
		var s Sample
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return s, nil
	}

	parser, ok := parserMap[probe.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}
	return parser(b)
}

// Marshal encodes a message compactly for sending.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}
