package gif

import (
	"bytes"
	"io"
)

// xmpApplicationID is the application identifier and auth code marking an
// XMP application extension.
var xmpApplicationID = []byte("XMP DataXMP")

const xmpTrailerSize = 256

// xmpTrailer returns the magic trailer appended to XMP payloads in GIF
// containers: the bytes 0xFF-i for i in 0..255.
func xmpTrailer() []byte {
	t := make([]byte, xmpTrailerSize)
	for i := range t {
		t[i] = byte(0xFF - i)
	}
	return t
}

// ReadXMP extracts the embedded XMP XML string from a GIF stream. It
// returns "" when the stream carries no XMP application extension.
func ReadXMP(r io.Reader) (string, error) {
	c, err := DecodeContents(r, WithoutImageData())
	if err != nil {
		return "", err
	}

	var found []string
	for _, b := range c.Blocks {
		gb, ok := b.(*GenericBlock)
		if !ok || gb.Code != CodeApplication {
			continue
		}
		payload := gb.Payload()
		if !bytes.HasPrefix(payload, xmpApplicationID) {
			continue
		}
		if len(payload) < len(xmpApplicationID)+xmpTrailerSize ||
			!bytes.Equal(payload[len(payload)-xmpTrailerSize:], xmpTrailer()) {
			return "", ErrMalformedXMP
		}
		// XMP is UTF-8 encoded XML between the identifier and the trailer.
		found = append(found, string(payload[len(xmpApplicationID):len(payload)-xmpTrailerSize]))
	}

	if len(found) > 1 {
		return "", ErrMultipleXMP
	}
	if len(found) == 0 {
		return "", nil
	}
	return found[0], nil
}
