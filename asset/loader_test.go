package asset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHTTPLoader_Load(t *testing.T) {
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	l := NewHTTPLoader(2 * time.Second)
	img, err := l.Load(context.Background(), srv.URL+"/prize.png")
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds %v", b)
	}
	if _, err := l.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("404 should fail")
	}
}

func TestDirLoader_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "upload-abc.png"), pngBytes(t), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	l := DirLoader{Dir: dir, Prefix: "/images/"}

	if _, err := l.Load(context.Background(), "/images/upload-abc.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load(context.Background(), "/images/broken.png"); err == nil {
		t.Error("undecodable file should fail")
	}
	if _, err := l.Load(context.Background(), "/other/upload-abc.png"); !errors.Is(err, ErrUnsupportedRef) {
		t.Errorf("foreign prefix: got %v", err)
	}
	// Clean collapses the traversal inside the upload dir.
	if _, err := l.Load(context.Background(), "/images/../../etc/passwd"); err == nil {
		t.Error("traversal should not resolve to a readable image")
	}
}

func TestMux_Dispatch(t *testing.T) {
	var got string
	remote := LoaderFunc(func(_ context.Context, ref string) (image.Image, error) {
		got = "remote"
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	local := LoaderFunc(func(_ context.Context, ref string) (image.Image, error) {
		got = "local"
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	m := Mux{Remote: remote, Local: local}

	m.Load(context.Background(), "https://cdn.example.com/a.png")
	if got != "remote" {
		t.Errorf("https ref went to %s", got)
	}
	m.Load(context.Background(), "/images/a.png")
	if got != "local" {
		t.Errorf("path ref went to %s", got)
	}
	if _, err := m.Load(context.Background(), ""); !errors.Is(err, ErrUnsupportedRef) {
		t.Errorf("empty ref: got %v", err)
	}
	if _, err := (Mux{}).Load(context.Background(), "http://x/y.png"); !errors.Is(err, ErrUnsupportedRef) {
		t.Errorf("no remote loader: got %v", err)
	}
}
