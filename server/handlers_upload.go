package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
)

// MaxUploadBytes caps one uploaded product image.
const MaxUploadBytes = 5 << 20

var uploadTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// upload stores a product image under UploadDir as upload-<id>.<ext> and
// returns the /images/ path to put on the product.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	// room for the multipart envelope around a maximal file
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB.", "too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded", "bad_request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded", "bad_request")
		return
	}
	defer file.Close()

	if _, ok := uploadTypes[strings.ToLower(header.Header.Get("Content-Type"))]; !ok {
		writeError(w, http.StatusBadRequest, "Invalid file type. Only JPEG, PNG, WebP and GIF are allowed.", "invalid_type")
		return
	}
	if header.Size > MaxUploadBytes {
		writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB.", "too_large")
		return
	}

	// the stored extension comes from the bytes, never from the client alone
	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	sniffedExt, ok := uploadTypes[http.DetectContentType(sniff[:n])]
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid file type. Only JPEG, PNG, WebP and GIF are allowed.", "invalid_type")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.log.Error().Err(err).Msg("rewind upload")
		writeError(w, http.StatusInternalServerError, "Failed to upload file", "internal")
		return
	}

	name := "upload-" + catalog.ShortID(10) + "." + uploadExt(header.Filename, sniffedExt)
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		s.log.Error().Err(err).Msg("create upload dir")
		writeError(w, http.StatusInternalServerError, "Failed to upload file", "internal")
		return
	}
	dst, err := os.OpenFile(filepath.Join(s.cfg.UploadDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		s.log.Error().Err(err).Msg("create upload file")
		writeError(w, http.StatusInternalServerError, "Failed to upload file", "internal")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		s.log.Error().Err(err).Msg("write upload file")
		writeError(w, http.StatusInternalServerError, "Failed to upload file", "internal")
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		writeError(w, http.StatusInternalServerError, "Failed to upload file", "internal")
		return
	}
	s.log.Info().Str("file", name).Int64("bytes", header.Size).Msg("image uploaded")
	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Path:    "/images/" + name,
		Message: "File uploaded successfully",
	})
}

// uploadExt keeps the client's extension only when it names the same image
// format as the sniffed one (jpeg for jpg), else uses sniffed.
func uploadExt(filename, sniffed string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "jpeg" && sniffed == "jpg" {
		return ext
	}
	return sniffed
}
