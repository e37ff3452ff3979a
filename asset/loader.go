package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"
)

// Loader resolves an image reference (URL or served upload path) to a
// decoded image.
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, ref string) (image.Image, error) { return f(ctx, ref) }

// ErrUnsupportedRef is returned for references no loader handles.
var ErrUnsupportedRef = errors.New("asset: unsupported image reference")

// Decode reads a png, jpeg, gif or webp image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Mux dispatches absolute http(s) references to Remote and everything else
// to Local. Either may be nil.
type Mux struct {
	Remote Loader
	Local  Loader
}

func (m Mux) Load(ctx context.Context, ref string) (image.Image, error) {
	switch {
	case ref == "":
		return nil, ErrUnsupportedRef
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if m.Remote == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
		}
		return m.Remote.Load(ctx, ref)
	default:
		if m.Local == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
		}
		return m.Local.Load(ctx, ref)
	}
}
