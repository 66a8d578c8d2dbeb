package gif

import (
	"fmt"
	"io"
)

type (
	// Info summarizes a stream without decoding pixel data.
	Info struct {
		Format        string // "GIF 87a" or "GIF 89a".
		Width, Height int    // Logical screen size.
		BitsPerPixel  int
		NumImages     int
		Comments      []string
		Interlaced    bool // First image descriptor is interlaced.
		Transparent   bool // First graphic control extension flags transparency.
		Compression   string
	}

	// Metadata carries the per-frame rendering facts, in file order.
	Metadata struct {
		Width, Height int
		LoopCount     int // NETSCAPE2.0 loop count, -1 when absent.
		Frames        []FrameMetadata
	}

	FrameMetadata struct {
		Delay     int // In 100ths of a second.
		Left, Top int
		Disposal  DisposalMethod
	}
)

// ReadInfo reads basic facts about a GIF stream. At least one image
// descriptor must be present.
func ReadInfo(r io.Reader) (*Info, error) {
	c, err := DecodeContents(r, WithoutImageData())
	if err != nil {
		return nil, err
	}
	ids := c.Descriptors()
	if len(ids) == 0 {
		return nil, fmt.Errorf("gif: missing image descriptor")
	}

	info := &Info{
		Format:       "GIF " + c.Header.Version[3:],
		Width:        c.Header.Width,
		Height:       c.Header.Height,
		BitsPerPixel: int(c.Header.ColorResolution) + 1,
		NumImages:    len(ids),
		Comments:     c.Comments(),
		Interlaced:   ids[0].InterlaceFlag,
		Compression:  "LZW",
	}
	if gces := c.GraphicControls(); len(gces) > 0 {
		info.Transparent = gces[0].Transparency
	}
	return info, nil
}

// ReadMetadata reads the logical screen size and the delay, position and
// disposal method of every frame. Frames without a graphic control
// extension report a zero delay and an unspecified disposal method.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	c, err := DecodeContents(r, WithoutImageData())
	if err != nil {
		return nil, err
	}
	ids, gces, err := c.frameData()
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		Width:     c.Header.Width,
		Height:    c.Header.Height,
		LoopCount: c.LoopCount(),
		Frames:    make([]FrameMetadata, len(ids)),
	}
	for i, id := range ids {
		fm := FrameMetadata{Left: id.Left, Top: id.Top}
		if gce := gces[i]; gce != nil {
			fm.Delay = gce.Delay
			fm.Disposal = gce.Disposal
		}
		md.Frames[i] = fm
	}
	return md, nil
}
