package fee

import "fmt"

// Class is the fee management category of a channel for one run.
type Class int

const (
	// ClassUnmanaged channels are skipped.
	ClassUnmanaged Class = iota
	// ClassFixed channels are pinned to a configured fee.
	ClassFixed
	// ClassManaged channels are adjusted automatically.
	ClassManaged
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case ClassFixed:
		return "fixed"
	case ClassManaged:
		return "managed"
	default:
		return "unmanaged"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fixed":
		*c = ClassFixed
	case "managed":
		*c = ClassManaged
	case "unmanaged":
		*c = ClassUnmanaged
	default:
		return fmt.Errorf("unknown channel class %q", text)
	}
	return nil
}

// Classification is a channel's class plus the data that comes with it.
// FixedFee is only meaningful for ClassFixed.
type Classification struct {
	Class    Class
	FixedFee int64
}

// Classifier assigns classes from the static fixed-fee map and managed set.
type Classifier struct {
	fixed   map[string]int64
	managed map[string]struct{}
}

// NewClassifier builds a classifier. The inputs are copied.
func NewClassifier(fixed map[string]int64, managed []string) *Classifier {
	c := &Classifier{
		fixed:   make(map[string]int64, len(fixed)),
		managed: make(map[string]struct{}, len(managed)),
	}
	for id, fee := range fixed {
		c.fixed[id] = fee
	}
	for _, id := range managed {
		c.managed[id] = struct{}{}
	}
	return c
}

// Classify returns the classification of a channel id.
// An id present in both lists is fixed.
func (c *Classifier) Classify(channelID string) Classification {
	if c == nil {
		return Classification{Class: ClassUnmanaged}
	}
	if fee, ok := c.fixed[channelID]; ok {
		return Classification{Class: ClassFixed, FixedFee: fee}
	}
	if _, ok := c.managed[channelID]; ok {
		return Classification{Class: ClassManaged}
	}
	return Classification{Class: ClassUnmanaged}
}

// Counts returns the sizes of the fixed and managed lists.
func (c *Classifier) Counts() (fixed, managed int) {
	if c == nil {
		return 0, 0
	}
	return len(c.fixed), len(c.managed)
}
