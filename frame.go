package gif

import (
	"fmt"
	"image"
	"image/color"
)

// packColorTable converts raw RGB triples into opaque NRGBA entries.
func packColorTable(table []byte) ([]color.NRGBA, error) {
	if len(table)%3 != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrBadColorTable, len(table))
	}
	entries := make([]color.NRGBA, len(table)/3)
	for i := range entries {
		entries[i] = color.NRGBA{R: table[i*3], G: table[i*3+1], B: table[i*3+2], A: 0xFF}
	}
	return entries, nil
}

func colorTablePalette(table []byte) (color.Palette, error) {
	entries, err := packColorTable(table)
	if err != nil {
		return nil, err
	}
	p := make(color.Palette, len(entries))
	for i, c := range entries {
		p[i] = c
	}
	return p, nil
}

// interlacedY maps a source row of an interlaced image of the given height
// onto its destination row, following the four GIF interlace passes.
func interlacedY(row, height int) (int, error) {
	rowsInPass1 := (height + 7) / 8
	rowsInPass2 := (height + 3) / 8
	rowsInPass3 := (height + 1) / 4
	rowsInPass4 := height / 2

	if row < rowsInPass1 {
		return row * 8, nil
	}
	row -= rowsInPass1
	if row < rowsInPass2 {
		return 4 + row*8, nil
	}
	row -= rowsInPass2
	if row < rowsInPass3 {
		return 2 + row*4, nil
	}
	row -= rowsInPass3
	if row < rowsInPass4 {
		return 1 + row*2, nil
	}
	return 0, fmt.Errorf("%w: row %d of %d", ErrInterlace, row, height)
}

// renderFrame expands a descriptor's palette indices into an NRGBA raster.
// The local color table overrides the global one; the graphic control
// extension, when present, supplies transparency.
func renderFrame(id *ImageDescriptor, gce *GraphicControl, globalColorTable []byte) (*image.NRGBA, error) {
	table := id.LocalColorTable
	if table == nil {
		table = globalColorTable
	}
	if table == nil {
		return nil, fmt.Errorf("%w: no color table in scope", ErrBadColorTable)
	}
	entries, err := packColorTable(table)
	if err != nil {
		return nil, err
	}

	transparent := -1
	if gce != nil && gce.Transparency {
		transparent = int(gce.TransparentIndex)
	}

	img := image.NewNRGBA(image.Rect(0, 0, id.Width, id.Height))
	counter := 0
	for row := 0; row < id.Height; row++ {
		y := row
		if id.InterlaceFlag {
			if y, err = interlacedY(row, id.Height); err != nil {
				return nil, err
			}
		}
		for x := 0; x < id.Width; x++ {
			if counter >= len(id.Pix) {
				return nil, fmt.Errorf("%w: %d of %d pixels", ErrNotEnough, counter, id.Width*id.Height)
			}
			index := int(id.Pix[counter])
			counter++
			if index >= len(entries) {
				return nil, fmt.Errorf("%w: index %d, color table length %d", ErrBadPixel, index, len(entries))
			}
			if index == transparent {
				continue // NRGBA zero value, fully transparent
			}
			img.SetNRGBA(x, y, entries[index])
		}
	}
	return img, nil
}
