package manifest

import (
	"testing"

	"github.com/matzehuels/tablepack/pkg/errors"
	"github.com/matzehuels/tablepack/pkg/repack"
)

const chainTOML = `
name = "chain"

[[objects]]
name = "root"
size = 10

  [[objects.links]]
  to = "a"
  position = 0

[[objects]]
name = "a"
size = 10

  [[objects.links]]
  to = "b"
  position = 0
  width = "narrow"

[[objects]]
name = "b"
size = 10
`

func TestParseChain(t *testing.T) {
	doc, err := Parse([]byte(chainTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.Name != "chain" {
		t.Errorf("Name = %q, want %q", doc.Name, "chain")
	}
	if len(doc.Objects) != 3 {
		t.Fatalf("objects = %d, want 3", len(doc.Objects))
	}
	if doc.Objects[0].Name != "root" || len(doc.Objects[0].Links) != 1 {
		t.Errorf("root spec wrong: %+v", doc.Objects[0])
	}
}

func TestPackedLayout(t *testing.T) {
	doc, err := Parse([]byte(chainTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	packed, err := doc.Packed()
	if err != nil {
		t.Fatalf("Packed: %v", err)
	}

	// Sentinel first, then leaves-first: [nil, b, a, root].
	if len(packed) != 4 {
		t.Fatalf("packed = %d entries, want 4", len(packed))
	}
	if packed[0] != nil {
		t.Error("packed[0] should be the nil sentinel")
	}
	if packed[1].Name != "b" || packed[2].Name != "a" || packed[3].Name != "root" {
		t.Errorf("packed order = %s %s %s, want b a root",
			packed[1].Name, packed[2].Name, packed[3].Name)
	}

	// Sentinel-based link targets.
	if got := packed[3].Links[0].Child; got != 2 {
		t.Errorf("root link child = %d, want 2 (a)", got)
	}
	if got := packed[2].Links[0].Child; got != 1 {
		t.Errorf("a link child = %d, want 1 (b)", got)
	}
}

func TestPackedFeedsRepacker(t *testing.T) {
	doc, err := Parse([]byte(chainTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	packed, err := doc.Packed()
	if err != nil {
		t.Fatalf("Packed: %v", err)
	}

	sink := repack.NewBufferSink()
	if err := repack.ResolveOverflows(packed, sink); err != nil {
		t.Fatalf("ResolveOverflows: %v", err)
	}
	out, err := sink.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(out) != 30 {
		t.Errorf("stream length = %d, want 30", len(out))
	}
}

func TestParseHexPayload(t *testing.T) {
	doc, err := Parse([]byte(`
[[objects]]
name = "only"
data = "deadbeef"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	packed, err := doc.Packed()
	if err != nil {
		t.Fatalf("Packed: %v", err)
	}
	got := packed[1].Payload
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(got) != len(want) {
		t.Fatalf("payload length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestParseJSON(t *testing.T) {
	doc, err := ParseJSON([]byte(`{
		"objects": [
			{"name": "root", "size": 8, "links": [{"to": "leaf", "position": 0, "width": "wide"}]},
			{"name": "leaf", "size": 4}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(doc.Objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(doc.Objects))
	}
	if doc.Objects[0].Links[0].Width != "wide" {
		t.Errorf("width = %q, want wide", doc.Objects[0].Links[0].Width)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{
			name: "empty manifest",
			toml: `name = "x"`,
		},
		{
			name: "missing object name",
			toml: `
[[objects]]
size = 4
`,
		},
		{
			name: "duplicate names",
			toml: `
[[objects]]
name = "a"
size = 4
[[objects]]
name = "a"
size = 4
`,
		},
		{
			name: "unknown link target",
			toml: `
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "ghost"
  position = 0
`,
		},
		{
			name: "link points upward",
			toml: `
[[objects]]
name = "leaf"
size = 4
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "leaf"
  position = 0
`,
		},
		{
			name: "self link",
			toml: `
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "root"
  position = 0
`,
		},
		{
			name: "field outside payload",
			toml: `
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "leaf"
  position = 3
[[objects]]
name = "leaf"
size = 4
`,
		},
		{
			name: "unknown width",
			toml: `
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "leaf"
  position = 0
  width = "huge"
[[objects]]
name = "leaf"
size = 4
`,
		},
		{
			name: "unknown anchor",
			toml: `
[[objects]]
name = "root"
size = 4
  [[objects.links]]
  to = "leaf"
  position = 0
  anchor = "middle"
[[objects]]
name = "leaf"
size = 4
`,
		},
		{
			name: "size and data both set",
			toml: `
[[objects]]
name = "root"
size = 4
data = "00"
`,
		},
		{
			name: "invalid hex",
			toml: `
[[objects]]
name = "root"
data = "zz"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			if err == nil {
				t.Fatal("Parse succeeded, want INVALID_MANIFEST")
			}
			if !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("error code = %v, want INVALID_MANIFEST", errors.GetCode(err))
			}
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("graph.yaml")
	if err == nil {
		t.Fatal("Load succeeded on unsupported extension")
	}
	if !errors.Is(err, errors.ErrCodeUnsupported) && !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("error code = %v, want UNSUPPORTED or NOT_FOUND", errors.GetCode(err))
	}
}
