package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

var (
	errFileTooLarge = errors.New("file too large")
	errNoFile       = errors.New("no file provided")
)

// upload is a received multipart file exposed as a reader.Source. The
// multipart file is seekable, so the source can be read more than once.
type upload struct {
	src  *reader.Source
	file multipart.File
	form *multipart.Form
}

func (u *upload) Close() {
	u.file.Close()
	u.form.RemoveAll()
}

// receiveUpload reads the "file" form field, rejecting bodies larger than
// the configured maximum.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: limit %d bytes", errFileTooLarge, maxSize)
		}
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	name := filepath.Base(header.Filename)
	return &upload{
		src:  reader.FromReader(name, file),
		file: file,
		form: r.MultipartForm,
	}, nil
}
