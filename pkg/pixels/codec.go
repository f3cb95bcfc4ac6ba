package pixels

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered image format into a buffer.
// Screenshots are PNG; the other decoders let baselines be committed in
// whatever format a project already uses.
func Decode(r io.Reader) (Buffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) (Buffer, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes the buffer as PNG.
func Encode(w io.Writer, b Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := png.Encode(w, b.Image()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// EncodeBytes returns the PNG encoding of the buffer.
func EncodeBytes(b Buffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI returns the buffer as an inline data:image/png;base64 URI.
func DataURI(b Buffer) (string, error) {
	data, err := EncodeBytes(b)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Load decodes the image file at path.
func Load(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer file.Close()

	return Decode(file)
}
