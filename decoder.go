package gif

import (
	"bufio"
	"fmt"
	"image"
	"io"
)

// If the io.Reader does not also have ReadByte, then decode will introduce
// its own buffering.
type reader interface {
	io.Reader
	io.ByteReader
}

type readOption func(*Decoder)

// WithoutImageData configures the decoder to return image descriptors
// without decompressing their LZW payloads. The sub-block chain is still
// drained so the stream stays positioned at the next block.
func WithoutImageData() readOption {
	return func(d *Decoder) {
		d.skipImageData = true
	}
}

func withCompliance(fc *Compliance) readOption {
	return func(d *Decoder) {
		d.fc = fc
	}
}

// NewDecoder returns a decoder that reads the block stream from r.
func NewDecoder(r io.Reader, opts ...readOption) *Decoder {
	r1, _ := r.(reader)
	if r1 == nil {
		r1 = bufio.NewReader(r)
	}
	d := &Decoder{r: r1}
	for _, o := range opts {
		o(d)
	}
	return d
}

type Decoder struct {
	r             reader
	skipImageData bool
	fc            *Compliance

	width, height int // logical screen, for compliance bounds checks

	// scratch space, must be at least 768 so we can read a color table
	tmp [1024]byte
}

// ReadHeader reads the signature, the logical screen descriptor and, if
// flagged, the global color table.
func (d *Decoder) ReadHeader() (*Header, []byte, error) {
	if err := readFull(d.r, d.tmp[:13], "header"); err != nil {
		return nil, nil, err
	}

	vers := string(d.tmp[:6])
	if vers != "GIF87a" && vers != "GIF89a" {
		if d.fc != nil {
			d.fc.compare("signature", "GIF8[79]a", vers)
		}
		return nil, nil, fmt.Errorf("%w: can't recognize format %q", ErrBadHeader, vers)
	}

	hdr := &Header{
		Version:              vers,
		Width:                readUint16(d.tmp[6:8]),
		Height:               readUint16(d.tmp[8:10]),
		ColorTableFlag:       d.tmp[10]&fColorTableFollows != 0,
		ColorResolution:      d.tmp[10] & fColorResolution >> 4,
		SortFlag:             d.tmp[10]&fSort != 0,
		ColorTableSize:       d.tmp[10] & fColorTableSize,
		BackgroundColorIndex: d.tmp[11],
		AspectRatio:          d.tmp[12],
	}
	d.width, d.height = hdr.Width, hdr.Height

	if d.fc != nil {
		d.fc.checkBounds("logical screen width", 1, 0xffff, hdr.Width)
		d.fc.checkBounds("logical screen height", 1, 0xffff, hdr.Height)
	}

	var gct []byte
	if hdr.ColorTableFlag {
		var err error
		if gct, err = d.readColorTable(hdr.ColorTableSize, "global color table"); err != nil {
			return nil, nil, err
		}
		if d.fc != nil {
			d.fc.checkBounds("background color index", 0, len(gct)/3-1, int(hdr.BackgroundColorIndex))
		}
	}
	return hdr, gct, nil
}

// readColorTable reads the 3*2^(sizeCode+1) bytes of a color table.
func (d *Decoder) readColorTable(sizeCode byte, what string) ([]byte, error) {
	n := 3 * (1 << (sizeCode + 1))
	if err := readFull(d.r, d.tmp[:n], what); err != nil {
		return nil, err
	}
	table := make([]byte, n)
	copy(table, d.tmp[:n])
	return table, nil
}

// ReadBlock reads the next block from the stream. It returns io.EOF once
// the trailer byte is reached. Stray 0x00 pad bytes between blocks are
// skipped, matching files in the wild.
func (d *Decoder) ReadBlock() (Block, error) {
	for {
		c, err := readByte(d.r, "block code")
		if err != nil {
			return nil, err
		}

		switch c {
		case sImageDescriptor:
			return d.readImageDescriptor()

		case sExtension:
			b, err := d.readExtension()
			if b != nil || err != nil {
				return b, err
			}

		case sTrailer:
			return nil, io.EOF

		case 0x00:
			// Bad byte, but keep going and see what happens.
			if d.fc != nil {
				d.fc.addComment("stray pad byte between blocks")
			}

		default:
			return nil, fmt.Errorf("%w: 0x%.2x", ErrUnknownBlock, c)
		}
	}
}

func (d *Decoder) readExtension() (Block, error) {
	label, err := readByte(d.r, "extension label")
	if err != nil {
		return nil, err
	}
	code := sExtension<<8 | int(label)

	switch label {
	case eGraphicControl:
		return d.readGraphicControl()

	case eComment, eText:
		return d.readGenericBlock(code, nil)

	case eApplication:
		return d.readApplication(code)

	default:
		if d.fc != nil {
			d.fc.addCode("unknown extension label", code)
		}
		return d.readGenericBlock(code, nil)
	}
}

func (d *Decoder) readGraphicControl() (*GraphicControl, error) {
	if err := readFull(d.r, d.tmp[:6], "graphic control extension"); err != nil {
		return nil, err
	}
	packed := d.tmp[1]
	return &GraphicControl{
		Packed:           packed,
		Disposal:         DisposalMethod(packed & gcDisposalMethod >> 2),
		UserInput:        packed&gcUserInputSet != 0,
		Transparency:     packed&gcTransparentColorSet != 0,
		Delay:            readUint16(d.tmp[2:4]),
		TransparentIndex: d.tmp[4],
	}, nil
}

func (d *Decoder) readApplication(code int) (Block, error) {
	id, err := d.readSubBlock("application identifier")
	if err != nil {
		return nil, err
	}
	if d.fc != nil {
		d.fc.addCode(fmt.Sprintf("application extension (%q)", id), code)
	}
	if len(id) == 0 {
		// The identifier sub-block doubled as the chain terminator.
		return nil, nil
	}
	return d.readGenericBlock(code, id)
}

func (d *Decoder) readGenericBlock(code int, first []byte) (*GenericBlock, error) {
	b := &GenericBlock{Code: code}
	if first != nil {
		b.SubBlocks = append(b.SubBlocks, first)
	}
	for {
		sb, err := d.readSubBlock("sub-block")
		if err != nil {
			return nil, err
		}
		if len(sb) == 0 {
			return b, nil
		}
		b.SubBlocks = append(b.SubBlocks, sb)
	}
}

func (d *Decoder) readSubBlock(what string) ([]byte, error) {
	n, err := readByte(d.r, what+" size")
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if err := readFull(d.r, d.tmp[:n], what); err != nil {
		return nil, err
	}
	sb := make([]byte, n)
	copy(sb, d.tmp[:n])
	return sb, nil
}

func (d *Decoder) readImageDescriptor() (*ImageDescriptor, error) {
	if err := readFull(d.r, d.tmp[:9], "image descriptor"); err != nil {
		return nil, err
	}
	id := &ImageDescriptor{
		Left:                readUint16(d.tmp[0:2]),
		Top:                 readUint16(d.tmp[2:4]),
		Width:               readUint16(d.tmp[4:6]),
		Height:              readUint16(d.tmp[6:8]),
		LocalColorTableFlag: d.tmp[8]&ifLocalColorTable != 0,
		InterlaceFlag:       d.tmp[8]&ifInterlace != 0,
		SortFlag:            d.tmp[8]&ifSort != 0,
		LocalColorTableSize: d.tmp[8] & ifLocalColorTableSize,
	}

	if d.fc != nil {
		d.fc.checkBounds("image width", 1, d.width, id.Width)
		d.fc.checkBounds("image height", 1, d.height, id.Height)
		d.fc.checkBounds("image left position", 0, d.width-id.Width, id.Left)
		d.fc.checkBounds("image top position", 0, d.height-id.Height, id.Top)
	}

	if id.LocalColorTableFlag {
		var err error
		if id.LocalColorTable, err = d.readColorTable(id.LocalColorTableSize, "local color table"); err != nil {
			return nil, err
		}
	}

	m, err := readByte(d.r, "LZW minimum code size")
	if err != nil {
		return nil, err
	}
	id.MinCodeSize = m

	data, err := d.readImageBlocks()
	if err != nil {
		return nil, err
	}
	if d.skipImageData {
		return id, nil
	}

	want := id.Width * id.Height
	if want > maxPixels {
		return nil, fmt.Errorf("gif: image %dx%d too large to decode", id.Width, id.Height)
	}
	pix, extra, err := lzwDecode(data, int(m), want)
	if err != nil {
		return nil, err
	}
	if extra && d.fc != nil {
		d.fc.addComment("leftover compressed image data after last pixel")
	}
	id.Pix = pix
	return id, nil
}

// readImageBlocks drains the LZW sub-block chain into one contiguous
// buffer. The codec never sees sub-block boundaries.
func (d *Decoder) readImageBlocks() ([]byte, error) {
	var data []byte
	for {
		n, err := readByte(d.r, "image data sub-block size")
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		if err := readFull(d.r, d.tmp[:n], "image data sub-block"); err != nil {
			return nil, err
		}
		data = append(data, d.tmp[:n]...)
	}
}

// DecodeContents reads a whole stream into its header, global color table
// and ordered block list.
func DecodeContents(r io.Reader, opts ...readOption) (*Contents, error) {
	d := NewDecoder(r, opts...)
	hdr, gct, err := d.ReadHeader()
	if err != nil {
		return nil, err
	}

	c := &Contents{Header: *hdr, GlobalColorTable: gct}
	for {
		b, err := d.ReadBlock()
		if err == io.EOF {
			return c, nil
		}
		if err != nil {
			return nil, err
		}
		c.Blocks = append(c.Blocks, b)
	}
}

// Decode reads a GIF stream from r and returns its first frame as an
// NRGBA image.
func Decode(r io.Reader) (image.Image, error) {
	c, err := DecodeContents(r)
	if err != nil {
		return nil, err
	}
	ids := c.Descriptors()
	if len(ids) == 0 {
		return nil, fmt.Errorf("gif: missing image descriptor")
	}
	var gce *GraphicControl
	if gces := c.GraphicControls(); len(gces) > 0 {
		gce = gces[0]
	}
	return renderFrame(ids[0], gce, c.GlobalColorTable)
}

// DecodeAll reads a GIF stream from r and returns every frame, in order.
func DecodeAll(r io.Reader) ([]image.Image, error) {
	c, err := DecodeContents(r)
	if err != nil {
		return nil, err
	}
	ids, gces, err := c.frameData()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("gif: missing image descriptor")
	}
	frames := make([]image.Image, len(ids))
	for i, id := range ids {
		if frames[i], err = renderFrame(id, gces[i], c.GlobalColorTable); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// DecodeConfig returns the logical screen dimensions and the global color
// model of a GIF stream without decoding any image data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	d := NewDecoder(r)
	hdr, gct, err := d.ReadHeader()
	if err != nil {
		return image.Config{}, err
	}
	cfg := image.Config{Width: hdr.Width, Height: hdr.Height}
	if gct != nil {
		if cfg.ColorModel, err = colorTablePalette(gct); err != nil {
			return image.Config{}, err
		}
	}
	return cfg, nil
}

func readByte(r io.ByteReader, what string) (byte, error) {
	c, err := r.ReadByte()
	if err != nil {
		return 0, readErr(err, what)
	}
	return c, nil
}

func readFull(r io.Reader, p []byte, what string) error {
	if _, err := io.ReadFull(r, p); err != nil {
		return readErr(err, what)
	}
	return nil
}

func readErr(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("gif: reading %s: %w", what, err)
}

func readUint16(b []uint8) int {
	return int(b[0]) | int(b[1])<<8
}
