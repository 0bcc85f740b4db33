package protocol

const (
	// DefaultMaxDepth is the default maximum array nesting depth
	DefaultMaxDepth = 64

	// DefaultMaxBulkLen is the default maximum bulk string length (512MB)
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxArrayLen is the default maximum array element count
	DefaultMaxArrayLen = 1024 * 1024

	// DefaultMaxLineLen is the default maximum header line length (64KB)
	DefaultMaxLineLen = 64 * 1024
)

// Limits constrains decoder memory and recursion. Zero fields fall back to
// the defaults.
type Limits struct {
	MaxDepth    int
	MaxBulkLen  int
	MaxArrayLen int
	MaxLineLen  int
}

// DefaultLimits returns the default decoding limits
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:    DefaultMaxDepth,
		MaxBulkLen:  DefaultMaxBulkLen,
		MaxArrayLen: DefaultMaxArrayLen,
		MaxLineLen:  DefaultMaxLineLen,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = d.MaxBulkLen
	}
	if l.MaxArrayLen <= 0 {
		l.MaxArrayLen = d.MaxArrayLen
	}
	if l.MaxLineLen <= 0 {
		l.MaxLineLen = d.MaxLineLen
	}
	return l
}
