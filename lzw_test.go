package gif

import (
	"bytes"
	stdlzw "compress/lzw"
	"io"
	"math/rand"
	"testing"
)

func TestLZWRoundTrip(t *testing.T) {
	// The sequence from a tiny two-color checker row.
	pix := []byte{0, 1, 1, 0, 0, 1, 1, 0}
	data := lzwEncode(pix, 2)
	got, _, err := lzwDecode(data, 2, len(pix))
	if err != nil {
		t.Fatal("lzwDecode:", err)
	}
	if !bytes.Equal(got, pix) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, pix)
	}
}

func TestLZWRoundTripRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, m := range []int{2, 3, 4, 5, 6, 7, 8} {
		for _, n := range []int{0, 1, 7, 256, 4096, 20000} {
			pix := make([]byte, n)
			for i := range pix {
				pix[i] = byte(rnd.Intn(1 << m))
			}
			got, _, err := lzwDecode(lzwEncode(pix, m), m, n)
			if err != nil {
				t.Fatalf("m=%d n=%d: lzwDecode: %v", m, n, err)
			}
			if !bytes.Equal(got, pix) {
				t.Fatalf("m=%d n=%d: round trip mismatch", m, n)
			}
		}
	}
}

// A long run of a single value exercises the KwKwK case and dictionary
// growth from 3-bit up to 9-bit codes.
func TestLZWSingleValueRun(t *testing.T) {
	pix := bytes.Repeat([]byte{3}, 1<<16)
	got, _, err := lzwDecode(lzwEncode(pix, 2), 2, len(pix))
	if err != nil {
		t.Fatal("lzwDecode:", err)
	}
	if !bytes.Equal(got, pix) {
		t.Fatal("single value run mismatch")
	}
}

// Dictionary fill forces a mid-stream clear code; the decoder must reset
// and keep going.
func TestLZWDictionaryFull(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	pix := make([]byte, 1<<18)
	for i := range pix {
		pix[i] = byte(rnd.Intn(4))
	}
	got, _, err := lzwDecode(lzwEncode(pix, 2), 2, len(pix))
	if err != nil {
		t.Fatal("lzwDecode:", err)
	}
	if !bytes.Equal(got, pix) {
		t.Fatal("dictionary full round trip mismatch")
	}
}

// The standard library LZW reader must accept our encoder's output and
// produce the same bytes: GIF mode, LSB first.
func TestLZWAgainstStdlibReader(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for _, m := range []int{2, 5, 8} {
		pix := make([]byte, 10000)
		for i := range pix {
			pix[i] = byte(rnd.Intn(1 << m))
		}
		r := stdlzw.NewReader(bytes.NewReader(lzwEncode(pix, m)), stdlzw.LSB, m)
		got, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("m=%d: stdlib read: %v", m, err)
		}
		if !bytes.Equal(got, pix) {
			t.Fatalf("m=%d: stdlib read mismatch", m)
		}
	}
}

// The converse: our decoder must accept the standard library writer's
// output.
func TestLZWAgainstStdlibWriter(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for _, m := range []int{2, 5, 8} {
		pix := make([]byte, 10000)
		for i := range pix {
			pix[i] = byte(rnd.Intn(1 << m))
		}
		buf := &bytes.Buffer{}
		w := stdlzw.NewWriter(buf, stdlzw.LSB, m)
		if _, err := w.Write(pix); err != nil {
			t.Fatal("stdlib write:", err)
		}
		w.Close()
		got, _, err := lzwDecode(buf.Bytes(), m, len(pix))
		if err != nil {
			t.Fatalf("m=%d: lzwDecode: %v", m, err)
		}
		if !bytes.Equal(got, pix) {
			t.Fatalf("m=%d: decode of stdlib stream mismatch", m)
		}
	}
}

func TestLZWBadMinCodeSize(t *testing.T) {
	for _, m := range []int{0, 1, 9} {
		if _, _, err := lzwDecode([]byte{0x44, 0x01}, m, 1); err == nil {
			t.Fatalf("m=%d: expected error", m)
		}
	}
}

func TestLZWTruncated(t *testing.T) {
	pix := bytes.Repeat([]byte{0, 1, 2, 3}, 64)
	data := lzwEncode(pix, 2)
	if _, _, err := lzwDecode(data[:len(data)/2], 2, len(pix)); err == nil {
		t.Fatal("expected error on truncated stream")
	}
}

// An end code cuts the output short; the codec reports what it produced
// and leaves the short-read decision to the frame reconstructor.
func TestLZWEarlyEnd(t *testing.T) {
	pix := []byte{1, 2, 3}
	data := lzwEncode(pix, 2)
	got, _, err := lzwDecode(data, 2, 10)
	if err != nil {
		t.Fatal("lzwDecode:", err)
	}
	if !bytes.Equal(got, pix) {
		t.Fatalf("got %v, want %v", got, pix)
	}
}

// Extra indices beyond the requested count are dropped and reported.
func TestLZWExtraData(t *testing.T) {
	data := lzwEncode([]byte{1, 2, 3, 0, 1}, 2)
	got, extra, err := lzwDecode(data, 2, 3)
	if err != nil {
		t.Fatal("lzwDecode:", err)
	}
	if !extra {
		t.Fatal("expected extra data to be reported")
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}
