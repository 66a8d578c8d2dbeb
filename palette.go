package gif

import (
	"image"
	"image/color"
	"sort"
)

// Palette is a color table under construction: at most 256 RGB24 entries
// addressable by index, with a reverse lookup used while mapping pixels.
type Palette interface {
	Len() int
	Entry(i int) uint32    // 0xRRGGBB
	IndexOf(rgb uint32) int
}

// PaletteBuilder supplies palettes to the encoder. Exact returns nil when
// the image holds more than maxColors distinct colors; Quantized reduces
// the image to at most maxColors representative entries.
type PaletteBuilder interface {
	Exact(m image.Image, maxColors int) Palette
	Quantized(m image.Image, maxColors int) Palette
}

func pixelRGB(m image.Image, x, y int) uint32 {
	c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

type exactPalette struct {
	entries []uint32
	index   map[uint32]int
}

func (p *exactPalette) Len() int           { return len(p.entries) }
func (p *exactPalette) Entry(i int) uint32 { return p.entries[i] }

func (p *exactPalette) IndexOf(rgb uint32) int {
	return p.index[rgb]
}

type quantizedPalette struct {
	entries []uint32
}

func (p *quantizedPalette) Len() int           { return len(p.entries) }
func (p *quantizedPalette) Entry(i int) uint32 { return p.entries[i] }

// IndexOf returns the entry closest to rgb by squared distance.
func (p *quantizedPalette) IndexOf(rgb uint32) int {
	r := int(rgb >> 16 & 0xFF)
	g := int(rgb >> 8 & 0xFF)
	b := int(rgb & 0xFF)
	best, bestDist := 0, 1<<31-1
	for i, e := range p.entries {
		dr := r - int(e>>16&0xFF)
		dg := g - int(e>>8&0xFF)
		db := b - int(e&0xFF)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// medianCutBuilder is the default palette builder: an exact palette when
// the image fits, otherwise a median-cut quantization of its color cube.
type medianCutBuilder struct{}

func (medianCutBuilder) Exact(m image.Image, maxColors int) Palette {
	bounds := m.Bounds()
	index := make(map[uint32]int)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgb := pixelRGB(m, x, y)
			if _, ok := index[rgb]; !ok {
				if len(index) == maxColors {
					return nil
				}
				index[rgb] = 0
			}
		}
	}

	entries := make([]uint32, 0, len(index))
	for rgb := range index {
		entries = append(entries, rgb)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })
	for i, rgb := range entries {
		index[rgb] = i
	}
	return &exactPalette{entries: entries, index: index}
}

// colorBox is a box in RGB space holding a set of distinct colors.
type colorBox struct {
	colors []uint32
	min    [3]int
	max    [3]int
}

func newColorBox(colors []uint32) *colorBox {
	b := &colorBox{colors: colors}
	for i := 0; i < 3; i++ {
		b.min[i], b.max[i] = 0xFF, 0
	}
	for _, c := range colors {
		for i, v := range [3]int{int(c >> 16 & 0xFF), int(c >> 8 & 0xFF), int(c & 0xFF)} {
			if v < b.min[i] {
				b.min[i] = v
			}
			if v > b.max[i] {
				b.max[i] = v
			}
		}
	}
	return b
}

func (b *colorBox) longestSideIndex() int {
	longest := 0
	for i := 1; i < 3; i++ {
		if b.max[i]-b.min[i] > b.max[longest]-b.min[longest] {
			longest = i
		}
	}
	return longest
}

func (b *colorBox) longestSideLength() int {
	i := b.longestSideIndex()
	return b.max[i] - b.min[i]
}

func (medianCutBuilder) Quantized(m image.Image, maxColors int) Palette {
	bounds := m.Bounds()
	seen := make(map[uint32]bool)
	var colors []uint32
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rgb := pixelRGB(m, x, y); !seen[rgb] {
				seen[rgb] = true
				colors = append(colors, rgb)
			}
		}
	}
	sort.Slice(colors, func(i, j int) bool { return colors[i] < colors[j] })

	if len(colors) == 0 {
		return &quantizedPalette{}
	}

	boxes := []*colorBox{newColorBox(colors)}
	for len(boxes) < maxColors {
		// Split the box with the longest side at its median.
		widest := -1
		for i, b := range boxes {
			if len(b.colors) < 2 {
				continue
			}
			if widest == -1 || b.longestSideLength() > boxes[widest].longestSideLength() {
				widest = i
			}
		}
		if widest == -1 {
			break
		}
		b := boxes[widest]
		shift := uint(16 - 8*b.longestSideIndex())
		sort.Slice(b.colors, func(i, j int) bool {
			return b.colors[i]>>shift&0xFF < b.colors[j]>>shift&0xFF
		})
		median := len(b.colors) / 2
		boxes[widest] = newColorBox(b.colors[:median])
		boxes = append(boxes, newColorBox(b.colors[median:]))
	}

	entries := make([]uint32, len(boxes))
	for i, b := range boxes {
		var sum [3]int
		for _, c := range b.colors {
			sum[0] += int(c >> 16 & 0xFF)
			sum[1] += int(c >> 8 & 0xFF)
			sum[2] += int(c & 0xFF)
		}
		n := len(b.colors)
		entries[i] = uint32(sum[0]/n)<<16 | uint32(sum[1]/n)<<8 | uint32(sum[2]/n)
	}
	return &quantizedPalette{entries: entries}
}
