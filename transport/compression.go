// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package transport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression names a payload compression algorithm. The name travels in the
// content-encoding header so receivers pick the matching decoder.
type Compression string

const (
	// NoCompression sends payloads as serialized.
	NoCompression Compression = ""
	// ZstdCompression uses Zstandard.
	ZstdCompression Compression = "zstd"
	// BrotliCompression uses Brotli.
	BrotliCompression Compression = "br"
)

// ParseCompression parses a compression name. "none" and "" mean NoCompression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return NoCompression, nil
	case string(ZstdCompression):
		return ZstdCompression, nil
	case string(BrotliCompression), "brotli":
		return BrotliCompression, nil
	default:
		return NoCompression, fmt.Errorf("transport: unknown compression %q", s)
	}
}

// codec compresses and decompresses payloads. Safe for concurrent use.
// EncodeAll and DecodeAll with a concurrency of one start no goroutines, so
// a codec needs no closing.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	level   int
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		_ = encoder.Close()
		return nil, err
	}
	return &codec{encoder: encoder, decoder: decoder, level: brotli.DefaultCompression}, nil
}

func (c *codec) compress(algorithm Compression, data []byte) ([]byte, error) {
	switch algorithm {
	case NoCompression:
		return data, nil
	case ZstdCompression:
		return c.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
	case BrotliCompression:
		var buf bytes.Buffer
		writer := brotli.NewWriterLevel(&buf, c.level)
		if _, err := writer.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("transport: unknown compression %q", algorithm)
	}
}

func (c *codec) decompress(algorithm Compression, data []byte) ([]byte, error) {
	switch algorithm {
	case NoCompression:
		return data, nil
	case ZstdCompression:
		return c.decoder.DecodeAll(data, nil)
	case BrotliCompression:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("transport: unknown compression %q", algorithm)
	}
}
