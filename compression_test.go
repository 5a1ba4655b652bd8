package reqcache

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeValueRespectsLimitEqualsLen(t *testing.T) {
	out, err := encodeValue(CompressionNone, 3, []byte("abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "abc" {
		t.Fatalf("unexpected output: %s", string(out))
	}
}

func TestDecodeValuePassThrough(t *testing.T) {
	for _, in := range []string{"plain", "tiny", ""} {
		out, err := decodeValue([]byte(in))
		if err != nil {
			t.Fatalf("decode %q err: %v", in, err)
		}
		if string(out) != in {
			t.Fatalf("expected passthrough for %q, got %q", in, out)
		}
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("request scoped cache "), 64)
	for _, codec := range []CompressionCodec{CompressionGzip, CompressionSnappy} {
		encoded, err := encodeValue(codec, 0, payload)
		if err != nil {
			t.Fatalf("%s encode failed: %v", codec, err)
		}
		if !bytes.HasPrefix(encoded, compressMagic) {
			t.Fatalf("%s payload missing magic", codec)
		}
		if len(encoded) >= len(payload) {
			t.Fatalf("%s did not shrink repetitive payload: %d >= %d", codec, len(encoded), len(payload))
		}
		decoded, err := decodeValue(encoded)
		if err != nil {
			t.Fatalf("%s decode failed: %v", codec, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("%s round trip mismatch", codec)
		}
	}
}

func TestEncodeValueGzipEarlySizeCheck(t *testing.T) {
	if _, err := encodeValue(CompressionGzip, 1, []byte("toolong")); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestEncodeValueCompressedSizeLimit(t *testing.T) {
	// the frame header alone exceeds the limit
	if _, err := encodeValue(CompressionSnappy, 2, []byte("x")); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestEncodeValueUnknownCodec(t *testing.T) {
	if _, err := encodeValue("weird", 0, []byte("x")); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec error, got %v", err)
	}
}

func TestDecodeValueCorrupt(t *testing.T) {
	if _, err := decodeValue([]byte("CMP1gnotgzip")); !errors.Is(err, ErrCorruptCompression) {
		t.Fatalf("expected corrupt gzip error, got %v", err)
	}
	if _, err := decodeValue([]byte("CMP1s\xff\xff\xff\xff\xff")); !errors.Is(err, ErrCorruptCompression) {
		t.Fatalf("expected corrupt snappy error, got %v", err)
	}
	if _, err := decodeValue([]byte("CMP1z???")); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec, got %v", err)
	}
}
