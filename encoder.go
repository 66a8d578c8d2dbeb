package gif

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

// writer is a buffered writer.
type writer interface {
	Flush() error
	io.Writer
	io.ByteWriter
}

// NewEncoder returns an encoder that writes a GIF89a stream to w.
func NewEncoder(w io.Writer) *Encoder {
	w1, _ := w.(writer)
	if w1 == nil {
		w1 = bufio.NewWriter(w)
	}
	return &Encoder{w: w1}
}

// Encoder encodes a single image to the GIF format.
type Encoder struct {
	// w is the writer to write to. err is the first error encountered
	// during writing. All attempted writes after the first error become
	// no-ops.
	w   writer
	err error
	// buf is a scratch buffer. It must be at least 768 so we can write the
	// color table.
	buf [1024]byte
}

type Options struct {
	// XMP is an XML string embedded as an XMP application extension.
	XMP string

	// Palettes builds the local color table. The default builder returns
	// an exact palette when the image has few enough distinct colors and
	// falls back to median-cut quantization.
	Palettes PaletteBuilder
}

type option func(*Options)

func WithXMP(xml string) option {
	return func(o *Options) {
		o.XMP = xml
	}
}

func WithPaletteBuilder(b PaletteBuilder) option {
	return func(o *Options) {
		o.Palettes = b
	}
}

// Encode writes the image m to w as a single-frame GIF89a stream.
func Encode(w io.Writer, m image.Image, o ...option) error {
	return NewEncoder(w).EncodeImage(m, o...)
}

// EncodeImage writes m as a complete GIF89a stream: signature, logical
// screen descriptor, one graphic control extension, the optional XMP
// application extension, one image descriptor with a local color table,
// the compressed image data and the trailer.
func (e *Encoder) EncodeImage(m image.Image, o ...option) error {
	b := m.Bounds()
	if b.Dx() > math.MaxUint16 || b.Dy() > math.MaxUint16 {
		return errors.New("gif: image is too large to encode")
	}

	opts := &Options{Palettes: medianCutBuilder{}}
	for _, o := range o {
		o(opts)
	}

	hasAlpha := hasTransparency(m)
	maxColors := 256
	if hasAlpha {
		maxColors = 255
	}
	pal := opts.Palettes.Exact(m, maxColors)
	if pal == nil {
		pal = opts.Palettes.Quantized(m, maxColors)
	}
	if pal == nil {
		return fmt.Errorf("%w: more than %d and no quantizer", ErrTooManyColors, maxColors)
	}

	paletteSize := pal.Len()
	if hasAlpha {
		paletteSize++ // one slot for the transparent index
	}
	sizeCode := colorTableSizeCode(paletteSize)

	e.writeHeader(b.Dx(), b.Dy(), sizeCode)
	e.writeGraphicControl(hasAlpha, pal.Len())
	if opts.XMP != "" {
		e.writeXMP(opts.XMP)
	}
	e.writeImageDescriptor(b.Dx(), b.Dy(), sizeCode)
	e.writeColorTable(pal, sizeCode)
	e.writeImageData(m, pal, hasAlpha, sizeCode)
	e.writeByte(sTrailer)

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// hasTransparency reports whether any pixel has an alpha below 255.
func hasTransparency(m image.Image) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := m.At(x, y).RGBA(); a < 0xFFFF {
				return true
			}
		}
	}
	return false
}

// colorTableSizeCode returns the smallest size code s with 2^(s+1) entries
// covering paletteSize, clamped to [0, 7].
func colorTableSizeCode(paletteSize int) int {
	s := 0
	for s < 7 && 1<<(s+1) < paletteSize {
		s++
	}
	return s
}

func (e *Encoder) writeHeader(width, height, sizeCode int) {
	e.writeString("GIF89a")
	writeUint16(e.buf[0:2], uint16(width))
	writeUint16(e.buf[2:4], uint16(height))
	e.buf[4] = byte(sizeCode) << 4 // color resolution, no global color table
	e.buf[5] = 0x00                // background color index
	e.buf[6] = 0x00                // pixel aspect ratio
	e.write(e.buf[:7])
}

func (e *Encoder) writeGraphicControl(hasAlpha bool, transparentIndex int) {
	e.buf[0] = sExtension
	e.buf[1] = eGraphicControl
	e.buf[2] = 0x04
	e.buf[3] = 0x00
	e.buf[6] = 0x00
	if hasAlpha {
		e.buf[3] = gcTransparentColorSet
		e.buf[6] = byte(transparentIndex)
	}
	writeUint16(e.buf[4:6], 0) // delay
	e.buf[7] = 0x00            // terminator
	e.write(e.buf[:8])
}

// writeXMP emits an application extension whose first sub-block is the
// 11-byte XMP identifier, followed by the UTF-8 XML and the 256-byte magic
// trailer packetized into sub-blocks.
func (e *Encoder) writeXMP(xml string) {
	e.buf[0] = sExtension
	e.buf[1] = eApplication
	e.buf[2] = byte(len(xmpApplicationID))
	e.write(e.buf[:3])
	e.write(xmpApplicationID)
	e.writeSubBlocks(append([]byte(xml), xmpTrailer()...))
}

func (e *Encoder) writeImageDescriptor(width, height, sizeCode int) {
	e.buf[0] = sImageDescriptor
	writeUint16(e.buf[1:3], 0) // left
	writeUint16(e.buf[3:5], 0) // top
	writeUint16(e.buf[5:7], uint16(width))
	writeUint16(e.buf[7:9], uint16(height))
	e.buf[9] = ifLocalColorTable | byte(sizeCode)
	e.write(e.buf[:10])
}

// writeColorTable writes the local color table, padded with zero triples up
// to 2^(sizeCode+1) entries.
func (e *Encoder) writeColorTable(pal Palette, sizeCode int) {
	n := 1 << (sizeCode + 1)
	for i := 0; i < n; i++ {
		var rgb uint32
		if i < pal.Len() {
			rgb = pal.Entry(i)
		}
		e.buf[3*i+0] = byte(rgb >> 16)
		e.buf[3*i+1] = byte(rgb >> 8)
		e.buf[3*i+2] = byte(rgb)
	}
	e.write(e.buf[:3*n])
}

func (e *Encoder) writeImageData(m image.Image, pal Palette, hasAlpha bool, sizeCode int) {
	minCodeSize := sizeCode + 1
	if minCodeSize < 2 {
		minCodeSize = 2
	}
	e.writeByte(byte(minCodeSize))

	b := m.Bounds()
	pix := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			if hasAlpha && c.A < 0xFF {
				pix = append(pix, byte(pal.Len()))
				continue
			}
			rgb := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
			pix = append(pix, byte(pal.IndexOf(rgb)))
		}
	}

	e.writeSubBlocks(lzwEncode(pix, minCodeSize))
}

// writeSubBlocks splits data into length-prefixed packets of at most 255
// bytes and terminates the chain with a zero-length block.
func (e *Encoder) writeSubBlocks(data []byte) {
	for len(data) > 0 {
		n := len(data)
		if n > 0xFF {
			n = 0xFF
		}
		e.writeByte(byte(n))
		e.write(data[:n])
		data = data[n:]
	}
	e.writeByte(0x00)
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *Encoder) writeString(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

// Little-endian.
func writeUint16(b []uint8, u uint16) {
	b[0] = uint8(u)
	b[1] = uint8(u >> 8)
}
