// Package serializer moves value trees in and out of JSON and YAML documents.
package serializer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Mime types of the supported encodings.
const (
	MimeJSON = "application/json"
	MimeYAML = "application/x-yaml"
)

// ErrUnsupported is returned for a mime type no serializer handles.
var ErrUnsupported = errors.New("unsupported mime type")

// Serializer encodes and decodes one document format.
type Serializer interface {
	Mime() string
	Decode(data []byte) (cty.Value, error)
	Encode(v cty.Value) ([]byte, error)
}

var byMime = map[string]Serializer{}

func register(s Serializer, aliases ...string) {
	for _, m := range append([]string{s.Mime()}, aliases...) {
		if _, exists := byMime[m]; exists {
			panic(fmt.Sprintf("serializer for '%s' already registered", m))
		}
		byMime[m] = s
	}
}

func init() {
	register(JSON{}, "json", "text/json")
	register(YAML{}, "yaml", "yml", "application/yaml", "text/yaml")
}

// ForMime returns the serializer for a mime type or a short format name such
// as "json". Parameters after ';' are ignored.
func ForMime(mime string) (Serializer, error) {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	if s, ok := byMime[mime]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnsupported, mime)
}

// Mimes lists every accepted mime type and alias.
func Mimes() []string {
	out := make([]string, 0, len(byMime))
	for m := range byMime {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
