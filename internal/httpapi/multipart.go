package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxFieldBytes bounds a single non-file form value.
const maxFieldBytes = 64 << 10

type upload struct {
	field string
	name  string
	data  []byte
}

// form is a parsed multipart body. Files are held in memory; the request
// body limit bounds their total size.
type form struct {
	files  []upload
	values map[string]string
}

// file returns the first upload whose field matches one of names in order.
func (f *form) file(names ...string) *upload {
	for _, n := range names {
		for i := range f.files {
			if f.files[i].field == n {
				return &f.files[i]
			}
		}
	}
	return nil
}

// fileOrFirst is file(names...) falling back to the first upload.
func (f *form) fileOrFirst(names ...string) *upload {
	if u := f.file(names...); u != nil {
		return u
	}
	if len(f.files) > 0 {
		return &f.files[0]
	}
	return nil
}

// readForm streams the multipart body of r. Oversized bodies yield a 413
// error; anything that is not multipart/form-data yields 415.
func readForm(w http.ResponseWriter, r *http.Request) (*form, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "multipart/form-data" {
		return nil, &httpError{code: http.StatusUnsupportedMediaType, msg: "Content-Type must be multipart/form-data"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &httpError{code: http.StatusBadRequest, msg: "invalid multipart body"}
	}
	f := &form{values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, bodyError(err)
		}
		field := part.FormName()
		if field == "" {
			part.Close()
			continue
		}
		if part.FileName() != "" {
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return nil, bodyError(err)
			}
			f.files = append(f.files, upload{field: field, name: part.FileName(), data: data})
			continue
		}
		v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		part.Close()
		if err != nil {
			return nil, bodyError(err)
		}
		if len(v) > maxFieldBytes {
			return nil, &httpError{code: http.StatusBadRequest, msg: fmt.Sprintf("form field %q too large", field)}
		}
		f.values[field] = strings.TrimSpace(string(v))
	}
}

func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &httpError{code: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("request body exceeds %d bytes", mbe.Limit)}
	}
	return &httpError{code: http.StatusBadRequest, msg: "invalid multipart body"}
}
