package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec turns records into bytes and back.
type Codec interface {
	Name() string
	// Extension is the file extension for documents written by this codec, with the leading dot.
	Extension() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// YAML is the canonical, human-readable codec.
func YAML() Codec { return yamlCodec{} }

// JSON writes indented JSON.
func JSON() Codec { return jsonCodec{} }

// MsgPack writes MessagePack.
func MsgPack() Codec { return msgpackCodec{} }

// Zstd wraps inner with zstd compression.
func Zstd(inner Codec) Codec { return zstdCodec{inner: inner} }

// ByName resolves "yaml", "json" or "msgpack", optionally suffixed with "+zstd".
func ByName(name string) (Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(name), "+zstd")

	var c Codec
	switch base {
	case "", "yaml", "yml":
		c = YAML()
	case "json":
		c = JSON()
	case "msgpack":
		c = MsgPack()
	default:
		return nil, fmt.Errorf("unsupported format: %s", name)
	}
	if compressed {
		c = Zstd(c)
	}
	return c, nil
}

// ByExtension resolves a codec from a file name such as "graph.json" or "graph.yaml.zst".
func ByExtension(path string) (Codec, error) {
	lower := strings.ToLower(path)
	base, compressed := strings.CutSuffix(lower, ".zst")

	var name string
	switch {
	case strings.HasSuffix(base, ".json"):
		name = "json"
	case strings.HasSuffix(base, ".msgpack"), strings.HasSuffix(base, ".mp"):
		name = "msgpack"
	case strings.HasSuffix(base, ".yaml"), strings.HasSuffix(base, ".yml"):
		name = "yaml"
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
	if compressed {
		name += "+zstd"
	}
	return ByName(name)
}

type yamlCodec struct{}

func (yamlCodec) Name() string      { return "yaml" }
func (yamlCodec) Extension() string { return ".yaml" }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

type jsonCodec struct{}

func (jsonCodec) Name() string      { return "json" }
func (jsonCodec) Extension() string { return ".json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string      { return "msgpack" }
func (msgpackCodec) Extension() string { return ".msgpack" }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

type zstdCodec struct {
	inner Codec
}

func (c zstdCodec) Name() string      { return c.inner.Name() + "+zstd" }
func (c zstdCodec) Extension() string { return c.inner.Extension() + ".zst" }

func (c zstdCodec) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func (c zstdCodec) Unmarshal(data []byte, v any) error {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return c.inner.Unmarshal(raw, v)
}
