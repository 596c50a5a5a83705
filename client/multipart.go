package client

import (
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
)

// FilePart is a file attached to a multipart request.
// ContentType defaults to application/octet-stream.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

type multipartBody struct {
	fields map[string]string
	files  []FilePart
}

// encode writes the form to w and returns its Content-Type.
func (m *multipartBody) encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, k := range slices.Sorted(maps.Keys(m.fields)) {
		if err := mw.WriteField(k, m.fields[k]); err != nil {
			return "", fmt.Errorf("writing field[%s]: %w", k, err)
		}
	}

	for _, f := range m.files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("creating part[%s]: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", fmt.Errorf("writing part[%s]: %w", f.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return mw.FormDataContentType(), nil
}
