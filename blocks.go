package gif

type (
	// Header holds the six signature/version bytes and the logical screen
	// descriptor fields, unpacked.
	Header struct {
		Version              string // "GIF87a" or "GIF89a".
		Width                int    // Logical screen width.
		Height               int    // Logical screen height.
		ColorTableFlag       bool   // A global color table follows the descriptor.
		ColorResolution      byte   // Bits of color resolution, minus one.
		SortFlag             bool
		ColorTableSize       byte // Size code s; the table holds 2^(s+1) entries.
		BackgroundColorIndex byte
		AspectRatio          byte
	}

	// ImageDescriptor is an image separator block, its optional local color
	// table and, unless decoding stopped before image data, the decompressed
	// palette indices (Width*Height bytes, possibly fewer on a short stream).
	ImageDescriptor struct {
		Left, Top           int
		Width, Height       int
		LocalColorTableFlag bool
		InterlaceFlag       bool
		SortFlag            bool
		LocalColorTableSize byte
		LocalColorTable     []byte // Raw RGB triples, nil when absent.
		MinCodeSize         byte   // LZW minimum code size as read.
		Pix                 []byte // Palette indices, nil with WithoutImageData.
	}

	// GraphicControl modifies how the image that follows it is rendered.
	GraphicControl struct {
		Packed           byte
		Disposal         DisposalMethod
		UserInput        bool
		Transparency     bool
		Delay            int // In 100ths of a second.
		TransparentIndex byte
	}

	// GenericBlock retains any extension that has no dedicated record:
	// comments, plain text, application extensions and unknown labels. For
	// application extensions the first sub-block is the 11-byte identifier
	// and auth code.
	GenericBlock struct {
		Code      int
		SubBlocks [][]byte
	}

	// Contents is the parsed form of a whole stream: header, optional global
	// color table and the ordered block list. All records are immutable once
	// parsed.
	Contents struct {
		Header           Header
		GlobalColorTable []byte // Raw RGB triples, nil when absent.
		Blocks           []Block
	}
)

// Block is a tagged record from the block stream, keyed by its composite
// code: 0x2C for image descriptors, (0x21<<8)|label for extensions.
type Block interface {
	BlockCode() int
}

func (*ImageDescriptor) BlockCode() int { return CodeImageDescriptor }
func (*GraphicControl) BlockCode() int  { return CodeGraphicControl }
func (b *GenericBlock) BlockCode() int  { return b.Code }

// Payload concatenates the sub-block chain into a single byte slice.
func (b *GenericBlock) Payload() []byte {
	n := 0
	for _, sb := range b.SubBlocks {
		n += len(sb)
	}
	p := make([]byte, 0, n)
	for _, sb := range b.SubBlocks {
		p = append(p, sb...)
	}
	return p
}

// Descriptors returns the image descriptors in file order.
func (c *Contents) Descriptors() []*ImageDescriptor {
	var ids []*ImageDescriptor
	for _, b := range c.Blocks {
		if id, ok := b.(*ImageDescriptor); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// GraphicControls returns the graphic control extensions in file order.
func (c *Contents) GraphicControls() []*GraphicControl {
	var gces []*GraphicControl
	for _, b := range c.Blocks {
		if gce, ok := b.(*GraphicControl); ok {
			gces = append(gces, gce)
		}
	}
	return gces
}

// Comments returns the payload of each comment extension, decoded as ASCII.
func (c *Contents) Comments() []string {
	var comments []string
	for _, b := range c.Blocks {
		if gb, ok := b.(*GenericBlock); ok && gb.Code == CodeComment {
			comments = append(comments, string(gb.Payload()))
		}
	}
	return comments
}

// LoopCount returns the NETSCAPE2.0 animation loop count, or -1 when the
// stream carries none.
func (c *Contents) LoopCount() int {
	for _, b := range c.Blocks {
		gb, ok := b.(*GenericBlock)
		if !ok || gb.Code != CodeApplication || len(gb.SubBlocks) < 2 {
			continue
		}
		if string(gb.SubBlocks[0]) != "NETSCAPE2.0" {
			continue
		}
		if sb := gb.SubBlocks[1]; len(sb) == 3 && sb[0] == 1 {
			return int(sb[1]) | int(sb[2])<<8
		}
	}
	return -1
}

// frameData pairs each image descriptor with its graphic control extension.
// The i-th extension belongs to the i-th descriptor in file order; the
// extension count must be zero or match the descriptor count exactly.
func (c *Contents) frameData() ([]*ImageDescriptor, []*GraphicControl, error) {
	ids := c.Descriptors()
	gces := c.GraphicControls()
	if len(gces) != 0 && len(gces) != len(ids) {
		return nil, nil, ErrGCECount
	}
	if len(gces) == 0 {
		gces = make([]*GraphicControl, len(ids))
	}
	return ids, gces, nil
}
