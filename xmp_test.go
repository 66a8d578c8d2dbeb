package gif

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	stdgif "image/gif"
	"testing"
)

const testXML = `<x:xmpmeta xmlns:x="adobe:ns:meta/"/>`

func xmpBlock(payload []byte) []byte {
	b := []byte{sExtension, eApplication, byte(len(xmpApplicationID))}
	b = append(b, xmpApplicationID...)
	return append(b, subBlockChain(payload)...)
}

func TestXMPRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, A: 0xFF})

	buf := &bytes.Buffer{}
	if err := Encode(buf, src, WithXMP(testXML)); err != nil {
		t.Fatal("Encode:", err)
	}

	xml, err := ReadXMP(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal("ReadXMP:", err)
	}
	if xml != testXML {
		t.Fatalf("got %q, want %q", xml, testXML)
	}

	// The payload must end in the magic trailer: 0xFF-i for i in 0..255.
	c, err := DecodeContents(bytes.NewReader(buf.Bytes()), WithoutImageData())
	if err != nil {
		t.Fatal("DecodeContents:", err)
	}
	var payload []byte
	for _, b := range c.Blocks {
		if gb, ok := b.(*GenericBlock); ok && gb.Code == CodeApplication {
			payload = gb.Payload()
		}
	}
	if len(payload) < xmpTrailerSize {
		t.Fatal("application payload too short")
	}
	trailer := payload[len(payload)-xmpTrailerSize:]
	for i, b := range trailer {
		if b != byte(0xFF-i) {
			t.Fatalf("trailer byte %d: got 0x%.2x, want 0x%.2x", i, b, byte(0xFF-i))
		}
	}

	// The XMP extension must not confuse other decoders.
	if _, err := stdgif.Decode(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal("standard lib Decode:", err)
	}

	// Pixels survive alongside the metadata.
	img, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal("Decode:", err)
	}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != src.NRGBAAt(0, 0) {
		t.Fatalf("pixel: got %v", got)
	}
}

func TestXMPAbsent(t *testing.T) {
	xml, err := ReadXMP(bytes.NewReader(redDotGIF()))
	if err != nil {
		t.Fatal("ReadXMP:", err)
	}
	if xml != "" {
		t.Fatalf("got %q, want empty", xml)
	}
}

func TestXMPMalformedTrailer(t *testing.T) {
	payload := append([]byte(testXML), xmpTrailer()...)
	payload[len(payload)-1] ^= 0xFF
	data := stream(
		screen("GIF89a", 1, 1, 0, 0, 0, nil),
		xmpBlock(payload),
	)
	if _, err := ReadXMP(bytes.NewReader(data)); !errors.Is(err, ErrMalformedXMP) {
		t.Fatal("expected ErrMalformedXMP, got:", err)
	}
}

func TestXMPMissingTrailer(t *testing.T) {
	data := stream(
		screen("GIF89a", 1, 1, 0, 0, 0, nil),
		xmpBlock([]byte(testXML)),
	)
	if _, err := ReadXMP(bytes.NewReader(data)); !errors.Is(err, ErrMalformedXMP) {
		t.Fatal("expected ErrMalformedXMP, got:", err)
	}
}

func TestXMPMultiple(t *testing.T) {
	payload := append([]byte(testXML), xmpTrailer()...)
	data := stream(
		screen("GIF89a", 1, 1, 0, 0, 0, nil),
		xmpBlock(payload),
		xmpBlock(payload),
	)
	if _, err := ReadXMP(bytes.NewReader(data)); !errors.Is(err, ErrMultipleXMP) {
		t.Fatal("expected ErrMultipleXMP, got:", err)
	}
}

// Application extensions with a different identifier are left alone.
func TestXMPIgnoresOtherApplications(t *testing.T) {
	netscape := append([]byte{sExtension, eApplication, 0x0B}, "NETSCAPE2.0"...)
	netscape = append(netscape, 0x03, 0x01, 0x00, 0x00, 0x00)
	data := stream(
		screen("GIF89a", 1, 1, 0, 0, 0, nil),
		netscape,
	)
	xml, err := ReadXMP(bytes.NewReader(data))
	if err != nil {
		t.Fatal("ReadXMP:", err)
	}
	if xml != "" {
		t.Fatalf("got %q, want empty", xml)
	}
}
