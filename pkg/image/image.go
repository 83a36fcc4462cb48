// Package image resolves image references found in responses into bytes.
package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

// DefaultMimeType is assumed for base64 payloads whose content cannot be
// sniffed as an image.
const DefaultMimeType = "image/png"

var (
	// ErrNotDataURI is returned by DecodeDataURI for strings without a data: scheme.
	ErrNotDataURI = errors.New("not a data URI")

	// ErrMalformedDataURI is returned for data URIs missing the comma separator.
	ErrMalformedDataURI = errors.New("malformed data URI")
)

// Extractor turns Image events into ImageDecoded events. Inline base64 and
// data URIs are decoded; external URLs pass through untouched. Images that
// fail to decode are counted and dropped.
type Extractor struct {
	decoded int
	failed  int
}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Predicate selects the events the extractor reacts to.
func Predicate() eventstream.Predicate {
	return eventstream.Topics(llm.TopicImage)
}

// Handle implements eventstream.Handler.
func (x *Extractor) Handle(ev llm.Event, emit eventstream.Emit) {
	img, ok := ev.(llm.Image)
	if !ok {
		return
	}

	decoded, err := Resolve(img)
	if err != nil {
		x.failed++
		return
	}

	x.decoded++
	emit(decoded)
}

// Decoded returns how many images were emitted.
func (x *Extractor) Decoded() int {
	return x.decoded
}

// Failed returns how many images could not be decoded.
func (x *Extractor) Failed() int {
	return x.failed
}

// Resolve converts one Image into an ImageDecoded.
func Resolve(img llm.Image) (llm.ImageDecoded, error) {
	out := llm.ImageDecoded{Index: img.Index}

	switch {
	case img.B64 != "":
		if strings.HasPrefix(img.B64, "data:") {
			mimeType, data, err := DecodeDataURI(img.B64)
			if err != nil {
				return out, err
			}
			out.MimeType, out.Data = mimeType, data
			return out, nil
		}

		data, err := decodeBase64(img.B64)
		if err != nil {
			return out, fmt.Errorf("decoding image %d: %w", img.Index, err)
		}
		out.MimeType, out.Data = sniff(data), data
		return out, nil

	case strings.HasPrefix(img.URL, "data:"):
		mimeType, data, err := DecodeDataURI(img.URL)
		if err != nil {
			return out, err
		}
		out.MimeType, out.Data = mimeType, data
		return out, nil

	case img.URL != "":
		out.URL = img.URL
		return out, nil

	default:
		return out, fmt.Errorf("image %d has neither data nor url", img.Index)
	}
}

// DecodeDataURI decodes an RFC 2397 data URI into its media type and bytes.
// A missing media type defaults to DefaultMimeType.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformedDataURI
	}

	isBase64 := false
	if h, found := strings.CutSuffix(header, ";base64"); found {
		header, isBase64 = h, true
	}

	mimeType := DefaultMimeType
	if header != "" {
		mt, _, err := mime.ParseMediaType(header)
		if err != nil {
			return "", nil, fmt.Errorf("parsing data URI media type: %w", err)
		}
		mimeType = mt
	}

	if isBase64 {
		data, err := decodeBase64(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decoding data URI: %w", err)
		}
		return mimeType, data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("unescaping data URI: %w", err)
	}
	return mimeType, []byte(data), nil
}

// decodeBase64 accepts padded and unpadded standard or URL-safe encodings.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		var data []byte
		if data, err = enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, err
}

func sniff(data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return DefaultMimeType
}
