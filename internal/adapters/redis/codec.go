package redis

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Overpass bodies are verbose JSON; a mid-range level keeps SET latency low.
const compressionLevel = 5

func compress(value []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, compressionLevel)
	if _, err := w.Write(value); err != nil {
		w.Close()
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(stored []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(stored)))
	if err != nil {
		return nil, fmt.Errorf("brotli read: %w", err)
	}
	return out, nil
}
