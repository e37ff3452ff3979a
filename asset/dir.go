package asset

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// DirLoader resolves served upload paths such as "/images/upload-x.png" to
// files under Dir.
type DirLoader struct {
	Dir    string
	Prefix string // URL prefix stripped from refs, e.g. "/images/"
}

func (l DirLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func (l DirLoader) resolve(ref string) (string, error) {
	name := ref
	if l.Prefix != "" {
		if !strings.HasPrefix(ref, l.Prefix) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
		}
		name = strings.TrimPrefix(ref, l.Prefix)
	}
	name = filepath.ToSlash(filepath.Clean("/" + name))
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	}
	full := filepath.Join(l.Dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(l.Dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset: path escapes upload dir: %s", ref)
	}
	return full, nil
}
