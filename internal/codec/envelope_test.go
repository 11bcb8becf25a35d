package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipB64(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeRoundTrip(t *testing.T) {
	many := make([]Row, 0, 50)
	for i := 0; i < 50; i++ {
		many = append(many, Row{
			"coursecode":    fmt.Sprintf("ENG%05d", i),
			"creditattempt": float64(i % 4),
			"active":        i%2 == 0,
			"remark":        nil,
			"coursename":    "วิชาทดสอบ",
		})
	}

	cases := map[string][]Row{
		"empty":  {},
		"single": {{"coursecode": "523101", "sectioncode": float64(1)}},
		"fifty":  many,
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			env, err := Encode(rows)
			require.NoError(t, err)

			got, err := Decode(env)
			require.NoError(t, err)
			assert.Equal(t, rows, got)
		})
	}
}

func TestDecodeDataAbsent(t *testing.T) {
	for name, result := range map[string]string{
		"blank":  "   ",
		"object": gzipB64(t, `{"message":"no data"}`),
		"null":   gzipB64(t, `null`),
		"string": gzipB64(t, `"pending"`),
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := Decode(Envelope{Result: result})
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	t.Run("bad base64", func(t *testing.T) {
		_, err := Decode(Envelope{Result: "not*base64!"})
		assert.ErrorIs(t, err, ErrBase64)
	})
	t.Run("not gzip", func(t *testing.T) {
		_, err := Decode(Envelope{Result: base64.StdEncoding.EncodeToString([]byte("plain text"))})
		assert.ErrorIs(t, err, ErrGzip)
	})
	t.Run("truncated gzip", func(t *testing.T) {
		full, _ := base64.StdEncoding.DecodeString(gzipB64(t, strings.Repeat(`[{"a":1}]`, 10)))
		_, err := Decode(Envelope{Result: base64.StdEncoding.EncodeToString(full[:len(full)/2])})
		assert.ErrorIs(t, err, ErrGzip)
	})
	t.Run("bad json", func(t *testing.T) {
		_, err := Decode(Envelope{Result: gzipB64(t, `[{"a":`)})
		assert.ErrorIs(t, err, ErrJSON)
	})
}

func TestDecodeBody(t *testing.T) {
	env, err := Encode([]Row{{"coursecode": "X"}})
	require.NoError(t, err)

	rows, err := DecodeBody(strings.NewReader(`{"result":"` + env.Result + `"}`))
	require.NoError(t, err)
	assert.Equal(t, []Row{{"coursecode": "X"}}, rows)

	_, err = DecodeBody(strings.NewReader(`<html>`))
	assert.ErrorIs(t, err, ErrJSON)
}
