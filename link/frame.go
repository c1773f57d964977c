package link

import "picow-go/errcode"

// Frames on the link bus. This is a minimal framing used between the host
// and the co-processor:
//
//	request:  kind seq len(2, LE) payload
//	response: kind|0x80 seq len(2, LE) status payload
//
// len counts everything after the header. A header of zeros read from the
// bus means the co-processor has nothing to send.

type Kind uint8

const (
	KindFirmware Kind = 0x01 // firmware image chunk, no response
	KindCLM      Kind = 0x02 // calibration image chunk, no response
	KindHello    Kind = 0x03 // end of upload; acknowledged with chip info
	KindSetPin   Kind = 0x10
	KindPower    Kind = 0x11
	KindEvent    Kind = 0x40 // unsolicited, co-processor to host

	respBit Kind = 0x80
)

func (k Kind) String() string {
	switch k &^ respBit {
	case KindFirmware:
		return "firmware"
	case KindCLM:
		return "clm"
	case KindHello:
		return "hello"
	case KindSetPin:
		return "set_pin"
	case KindPower:
		return "set_power_mode"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Response status byte.
const (
	StatusOK          uint8 = 0
	StatusError       uint8 = 1
	StatusUnsupported uint8 = 2
)

const (
	HeaderLen  = 4
	MaxPayload = 256
)

// AppendRequest encodes a request frame.
func AppendRequest(dst []byte, k Kind, seq uint8, payload []byte) []byte {
	n := len(payload)
	dst = append(dst, byte(k), seq, byte(n), byte(n>>8))
	return append(dst, payload...)
}

// AppendResponse encodes a response frame. Used by simulated co-processors.
func AppendResponse(dst []byte, k Kind, seq uint8, status uint8, payload []byte) []byte {
	n := len(payload) + 1
	dst = append(dst, byte(k|respBit), seq, byte(n), byte(n>>8), status)
	return append(dst, payload...)
}

// Request is a decoded request frame.
type Request struct {
	Kind    Kind
	Seq     uint8
	Payload []byte
}

// ParseRequest decodes one request frame. Payload aliases b.
func ParseRequest(b []byte) (Request, error) {
	if len(b) < HeaderLen {
		return Request{}, malformed("short request header")
	}
	n := bodyLen(b)
	if n > MaxPayload || len(b) < HeaderLen+n {
		return Request{}, malformed("request length")
	}
	k := Kind(b[0])
	if k&respBit != 0 {
		return Request{}, malformed("response bit on request")
	}
	return Request{Kind: k, Seq: b[1], Payload: b[HeaderLen : HeaderLen+n]}, nil
}

// Response is a decoded response or event frame.
type Response struct {
	Kind    Kind // without the response bit
	Seq     uint8
	Status  uint8
	Payload []byte
}

// ParseResponse decodes one response frame. Payload aliases b.
func ParseResponse(b []byte) (Response, error) {
	if len(b) < HeaderLen {
		return Response{}, malformed("short response header")
	}
	k := Kind(b[0])
	if k&respBit == 0 {
		return Response{}, malformed("missing response bit")
	}
	n := bodyLen(b)
	if n < 1 || n > MaxPayload+1 {
		return Response{}, malformed("response length")
	}
	if len(b) < HeaderLen+n {
		return Response{}, malformed("truncated response")
	}
	return Response{
		Kind:    k &^ respBit,
		Seq:     b[1],
		Status:  b[HeaderLen],
		Payload: b[HeaderLen+1 : HeaderLen+n],
	}, nil
}

func bodyLen(b []byte) int { return int(b[2]) | int(b[3])<<8 }

func malformed(msg string) error {
	return &errcode.E{C: errcode.Malformed, Op: "link.frame", Msg: msg}
}
