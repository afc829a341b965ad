//go:build !linux

package uinput

// Open always fails outside Linux.
func Open(name string) (*Sink, error) {
	return nil, ErrUnsupported
}
