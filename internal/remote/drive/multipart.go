package drive

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"time"
)

const boundaryPrefix = "-------dayone-boundary-"

type fileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

var now = time.Now

func newBoundary() (string, error) {
	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("generate boundary: %w", err)
	}
	return fmt.Sprintf("%s%d-%s", boundaryPrefix, now().UnixMilli(), hex.EncodeToString(suffix[:])), nil
}

// buildMultipart encodes a multipart/related body with a JSON metadata part followed by
// the binary content. The boundary is re-rolled until it does not occur in the payload.
func buildMultipart(meta fileMetadata, data []byte) ([]byte, string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("encode metadata: %w", err)
	}

	var boundary string
	for {
		boundary, err = newBoundary()
		if err != nil {
			return nil, "", err
		}
		if !bytes.Contains(data, []byte(boundary)) && !bytes.Contains(metaJSON, []byte(boundary)) {
			break
		}
	}

	var body bytes.Buffer
	body.Grow(len(data) + len(metaJSON) + 4*len(boundary) + 128)
	w := multipart.NewWriter(&body)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("set boundary: %w", err)
	}

	parts := []struct {
		contentType string
		content     []byte
	}{
		{"application/json; charset=UTF-8", metaJSON},
		{meta.MimeType, data},
	}
	for _, p := range parts {
		part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, "", fmt.Errorf("create part: %w", err)
		}
		if _, err := part.Write(p.content); err != nil {
			return nil, "", fmt.Errorf("write part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return body.Bytes(), "multipart/related; boundary=" + w.Boundary(), nil
}
