package server

import (
	"github.com/GriffinCanCode/inkglow/internal/compose"
	"github.com/GriffinCanCode/inkglow/internal/pipeline"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

// Client to server.

type CalibrateMessage struct {
	Type    string          `json:"type"`
	Label   signature.Label `json:"label"`
	TraceID string          `json:"trace_id,omitempty"`
}

// SampleMessage carries display-space coordinates of a click.
type SampleMessage struct {
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	TraceID string  `json:"trace_id,omitempty"`
}

// SettingsMessage changes live tunables. Nil fields are left alone.
type SettingsMessage struct {
	Type       string   `json:"type"`
	Mode       *string  `json:"mode,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Mirrored   *bool    `json:"mirrored,omitempty"`
	TraceID    string   `json:"trace_id,omitempty"`
}

// Server to client.

// FrameMessage precedes the binary RGBA payload of one frame: Width*Height*4
// bytes, straight alpha, row-major.
type FrameMessage struct {
	Type     string                  `json:"type"`
	Seq      uint64                  `json:"seq"`
	Width    int                     `json:"width"`
	Height   int                     `json:"height"`
	Native   [2]int                  `json:"native"`
	Scale    compose.Scale           `json:"scale"`
	Mirrored bool                    `json:"mirrored"`
	Glow     []compose.GlowSpec      `json:"glow"`
	Counts   map[signature.Label]int `json:"counts"`
}

type CalibrationMessage struct {
	Type  string          `json:"type"`
	State string          `json:"state"`
	Label signature.Label `json:"label,omitempty"`
}

type SignaturesMessage struct {
	Type       string                `json:"type"`
	Signatures []signature.Signature `json:"signatures"`
}

type SampledMessage struct {
	Type      string              `json:"type"`
	Signature signature.Signature `json:"signature"`
}

type StatusMessage struct {
	Type   string          `json:"type"`
	Status pipeline.Status `json:"status"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func frameMessage(seq uint64, out *compose.Output) FrameMessage {
	b := out.Image.Bounds()
	return FrameMessage{
		Type:     "frame",
		Seq:      seq,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Native:   [2]int{out.Native.X, out.Native.Y},
		Scale:    out.Scale,
		Mirrored: out.Mirrored,
		Glow:     out.Glow,
		Counts:   out.Counts,
	}
}

func signaturesMessage(set *signature.Set) SignaturesMessage {
	return SignaturesMessage{Type: "signatures", Signatures: set.All()}
}
