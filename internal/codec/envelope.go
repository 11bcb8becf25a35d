// Package codec decodes the compressed envelope returned by upstream
// endpoints that carry large tabular data: {"result": base64(gzip(json))}.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Distinct decode failures. Callers treat all of them as "upstream data
// unavailable".
var (
	ErrBase64 = errors.New("codec: malformed base64")
	ErrGzip   = errors.New("codec: corrupt gzip stream")
	ErrJSON   = errors.New("codec: invalid json")
)

// Envelope is the upstream response wrapper.
type Envelope struct {
	Result string `json:"result"`
}

// Row is one raw upstream record. The schema varies per endpoint, so rows stay
// loosely typed until a normalizer converts them.
type Row = map[string]any

// Decode unwraps env into its rows. An empty result or a JSON value that is
// not an array yields an empty, non-nil slice: "no data yet" is not an error.
func Decode(env Envelope) ([]Row, error) {
	payload := strings.TrimSpace(env.Result)
	if payload == "" {
		return []Row{}, nil
	}

	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBase64, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGzip, err)
	}
	defer zr.Close()
	text, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGzip, err)
	}

	var doc any
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	items, ok := doc.([]any)
	if !ok {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(items))
	for _, it := range items {
		if row, ok := it.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// DecodeBody reads an upstream response body holding an Envelope.
func DecodeBody(r io.Reader) ([]Row, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrJSON, err)
	}
	return Decode(env)
}

// Encode is the inverse of Decode. Nothing sends compressed payloads upstream;
// it backs stub servers and fixtures.
func Encode(v any) (Envelope, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(text); err != nil {
		return Envelope{}, err
	}
	if err := zw.Close(); err != nil {
		return Envelope{}, err
	}
	return Envelope{Result: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}
