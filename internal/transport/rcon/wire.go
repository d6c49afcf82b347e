package rcon

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// headerSize is the fixed frame header length: request id then body length,
// both little-endian uint32
const headerSize = 8

// maxBodyLen rejects nonsense lengths from a corrupted or unobscured stream
const maxBodyLen = 8 << 20

// Request is the JSON envelope sent to the server. ContentBody is always a
// string; structured command arguments are JSON-encoded into it.
type Request struct {
	AuthToken   string `json:"AuthToken"`
	Version     int    `json:"Version"`
	Name        string `json:"Name"`
	ContentBody string `json:"ContentBody"`
}

// Response is the JSON envelope received from the server. Servers have been
// observed emitting both stock and lowercase key spellings.
type Response struct {
	StatusCode    int
	StatusMessage string
	ContentBody   string
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		StatusCode       *int             `json:"StatusCode"`
		StatusCodeAlt    *int             `json:"statusCode"`
		StatusMessage    *string          `json:"StatusMessage"`
		StatusMessageAlt *string          `json:"statusMessage"`
		ContentBody      *json.RawMessage `json:"ContentBody"`
		ContentBodyAlt   *json.RawMessage `json:"contentBody"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.StatusCode != nil:
		r.StatusCode = *raw.StatusCode
	case raw.StatusCodeAlt != nil:
		r.StatusCode = *raw.StatusCodeAlt
	}

	switch {
	case raw.StatusMessage != nil:
		r.StatusMessage = *raw.StatusMessage
	case raw.StatusMessageAlt != nil:
		r.StatusMessage = *raw.StatusMessageAlt
	}

	content := raw.ContentBody
	if content == nil {
		content = raw.ContentBodyAlt
	}
	if content != nil {
		// Usually a JSON string; anything else is kept as raw text
		var s string
		if err := json.Unmarshal(*content, &s); err == nil {
			r.ContentBody = s
		} else {
			r.ContentBody = string(*content)
		}
	}

	return nil
}

// ObscureBytes XOR-combines data with key, cycling the key when the message
// is longer. The transform is involutive, so it both encodes and decodes. A
// nil or empty key leaves the bytes untouched (the pre-handshake state).
func ObscureBytes(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// EncodeFrame writes one framed packet: the 8-byte header then the body
func EncodeFrame(w io.Writer, requestID uint32, body []byte) error {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], requestID)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return wireErr("write frame header", err)
	}
	if _, err := w.Write(body); err != nil {
		return wireErr("write frame body", err)
	}
	return nil
}

// DecodeFrame reads one framed packet, returning the request id and the raw
// (still obscured) body. A truncated header or body never yields partial
// data.
func DecodeFrame(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, wireErr("read frame header", err)
	}

	requestID := binary.LittleEndian.Uint32(header[0:4])
	bodyLen := binary.LittleEndian.Uint32(header[4:8])
	if bodyLen > maxBodyLen {
		return 0, nil, fmt.Errorf("%w: frame body length %d exceeds limit", model.ErrProtocol, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, wireErr("read frame body", err)
	}
	return requestID, body, nil
}

// DecodeResponse parses a de-obscured frame body into a Response envelope
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response body: %v", model.ErrProtocol, err)
	}
	return &resp, nil
}

// wireErr classifies an I/O failure: deadline overruns are timeouts,
// everything else on the frame path is a protocol violation
func wireErr(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", model.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", model.ErrProtocol, op, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
