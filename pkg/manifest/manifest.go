// Package manifest loads human-authorable object graph descriptions.
//
// A manifest describes a serialized object graph by name rather than by
// index: objects are listed root-first, payloads are given as a byte size
// or inline hex, and links reference other objects by name. The loader
// validates the description, resolves names to indices, and produces the
// packed (reverse serialization order, sentinel-prefixed) object list the
// repacker consumes.
//
// # TOML Format
//
//	name = "gsub-subset"
//
//	[[objects]]
//	name = "gsub"
//	size = 10
//
//	  [[objects.links]]
//	  to = "lookup"
//	  position = 0
//	  width = "narrow"
//	  anchor = "head"
//
//	[[objects.links]] blocks accept width ("narrow", "wide"), anchor
//
// ("head", "tail", "absolute"), signed (bool) and bias (integer).
// Payloads come from either a zero-filled size or an inline hex data
// string, not both.
//
// The same structure is accepted as JSON, which is the interchange format
// of the HTTP surface.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tablepack/pkg/errors"
	"github.com/matzehuels/tablepack/pkg/repack"
)

// Document is a parsed manifest before resolution.
type Document struct {
	Name    string       `toml:"name" json:"name,omitempty"`
	Objects []ObjectSpec `toml:"objects" json:"objects"`
}

// ObjectSpec describes one object. Exactly one of Size or Data provides
// the payload.
type ObjectSpec struct {
	Name  string     `toml:"name" json:"name"`
	Size  int        `toml:"size" json:"size,omitempty"`
	Data  string     `toml:"data" json:"data,omitempty"`
	Links []LinkSpec `toml:"links" json:"links,omitempty"`
}

// LinkSpec describes one outbound link by target name.
type LinkSpec struct {
	To       string `toml:"to" json:"to"`
	Position int    `toml:"position" json:"position"`
	Width    string `toml:"width" json:"width,omitempty"`
	Signed   bool   `toml:"signed" json:"signed,omitempty"`
	Anchor   string `toml:"anchor" json:"anchor,omitempty"`
	Bias     int64  `toml:"bias" json:"bias,omitempty"`
}

var widthFromString = map[string]repack.Width{
	"":       repack.Narrow,
	"narrow": repack.Narrow,
	"wide":   repack.Wide,
}

var anchorFromString = map[string]repack.Anchor{
	"":         repack.AnchorHead,
	"head":     repack.AnchorHead,
	"tail":     repack.AnchorTail,
	"absolute": repack.AnchorAbsolute,
}

// Load reads a manifest file, choosing the format by extension:
// .toml for TOML, .json for JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read manifest %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return Parse(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported,
			"unsupported manifest extension %q (want .toml or .json)", filepath.Ext(path))
	}
}

// Parse decodes a TOML manifest.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode TOML manifest")
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseJSON decodes a JSON manifest.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode JSON manifest")
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validate checks names, payload specs, link targets and ordering.
// Objects must be listed root-first: every link target appears strictly
// after its parent, which guarantees the packed list is a valid reverse
// topological order.
func (d *Document) validate() error {
	if len(d.Objects) == 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest has no objects")
	}

	index := make(map[string]int, len(d.Objects))
	for i, obj := range d.Objects {
		if obj.Name == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "object %d has no name", i)
		}
		if _, dup := index[obj.Name]; dup {
			return errors.New(errors.ErrCodeInvalidManifest, "duplicate object name %q", obj.Name)
		}
		index[obj.Name] = i

		if obj.Size < 0 {
			return errors.New(errors.ErrCodeInvalidManifest, "object %q has negative size", obj.Name)
		}
		if obj.Size > 0 && obj.Data != "" {
			return errors.New(errors.ErrCodeInvalidManifest,
				"object %q sets both size and data", obj.Name)
		}
		if obj.Data != "" {
			if _, err := hex.DecodeString(obj.Data); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidManifest, err,
					"object %q has invalid hex data", obj.Name)
			}
		}
	}

	for i, obj := range d.Objects {
		payloadLen := obj.payloadLen()
		for _, l := range obj.Links {
			target, ok := index[l.To]
			if !ok {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q links to unknown object %q", obj.Name, l.To)
			}
			if target <= i {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q links to %q, which does not appear below it; manifests list objects root-first",
					obj.Name, l.To)
			}
			width, ok := widthFromString[l.Width]
			if !ok {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q link to %q has unknown width %q", obj.Name, l.To, l.Width)
			}
			if _, ok := anchorFromString[l.Anchor]; !ok {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q link to %q has unknown anchor %q", obj.Name, l.To, l.Anchor)
			}
			if l.Position < 0 || l.Position+width.Bytes() > payloadLen {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q link field at %d exceeds payload of %d bytes",
					obj.Name, l.Position, payloadLen)
			}
			if l.Bias < 0 {
				return errors.New(errors.ErrCodeInvalidManifest,
					"object %q link to %q has negative bias", obj.Name, l.To)
			}
		}
	}

	return nil
}

func (o *ObjectSpec) payloadLen() int {
	if o.Data != "" {
		return len(o.Data) / 2
	}
	return o.Size
}

// Packed resolves the manifest into the packed object list the repacker
// consumes: reverse serialization order (root last), prefixed with the
// serializer's nil sentinel, link targets as sentinel-based indices.
func (d *Document) Packed() ([]*repack.Object, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	n := len(d.Objects)

	// Manifest position i (root at 0) lands at packed index n-i
	// (sentinel at 0, root at the end).
	packedIndex := make(map[string]int, n)
	for i, obj := range d.Objects {
		packedIndex[obj.Name] = n - i
	}

	packed := make([]*repack.Object, n+1)
	for _, obj := range d.Objects {
		payload := make([]byte, obj.payloadLen())
		if obj.Data != "" {
			decoded, err := hex.DecodeString(obj.Data)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err,
					"object %q has invalid hex data", obj.Name)
			}
			copy(payload, decoded)
		}

		links := make([]repack.Link, len(obj.Links))
		for j, l := range obj.Links {
			links[j] = repack.Link{
				Child:    packedIndex[l.To],
				Position: l.Position,
				Width:    widthFromString[l.Width],
				Signed:   l.Signed,
				Anchor:   anchorFromString[l.Anchor],
				Bias:     l.Bias,
			}
		}

		packed[packedIndex[obj.Name]] = &repack.Object{
			Name:    obj.Name,
			Payload: payload,
			Links:   links,
		}
	}

	return packed, nil
}

// Graph is a convenience that resolves the manifest and imports it into
// a repack Graph in one step.
func (d *Document) Graph() (*repack.Graph, error) {
	packed, err := d.Packed()
	if err != nil {
		return nil, err
	}
	return repack.FromPacked(packed)
}
