package gif

import (
	"fmt"
	"io"
)

// Compliance reports deviations from the GIF specification found while
// parsing: out-of-bounds fields, unknown extension labels, application
// extensions, stray pad bytes and leftover image data. Deviations are
// recorded, not fatal; hard parse failures are still returned as errors.
type Compliance struct {
	Comments []string
}

// Clean reports whether no deviations were recorded.
func (fc *Compliance) Clean() bool {
	return len(fc.Comments) == 0
}

func (fc *Compliance) addComment(comment string) {
	fc.Comments = append(fc.Comments, comment)
}

func (fc *Compliance) addCode(comment string, code int) {
	fc.addComment(fmt.Sprintf("%s [0x%x]", comment, code))
}

func (fc *Compliance) compare(name, expected, actual string) {
	fc.addComment(fmt.Sprintf("%s: expected %s, got %q", name, expected, actual))
}

func (fc *Compliance) checkBounds(name string, min, max, actual int) {
	if actual < min || actual > max {
		fc.addComment(fmt.Sprintf("%s: %d outside bounds [%d, %d]", name, actual, min, max))
	}
}

// CheckCompliance parses a whole stream and returns the deviations found.
func CheckCompliance(r io.Reader) (*Compliance, error) {
	fc := &Compliance{}
	if _, err := DecodeContents(r, withCompliance(fc)); err != nil {
		return nil, err
	}
	return fc, nil
}
