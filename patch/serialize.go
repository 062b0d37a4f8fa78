// serialize.go -- on-disk wire format for a Patch
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package patch

import (
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/opencoff/fstree"
)

// opDTO is the YAML-friendly shadow of Operation. Proj is deliberately
// dropped: a symlinked-mount projection only makes sense in the context
// of the live trees that produced it, not a patch file replayed later
// against arbitrary input/output directories.
type opDTO struct {
	Kind     Op                `yaml:"op"`
	Path     string            `yaml:"path"`
	Size     uint64            `yaml:"size,omitempty"`
	Mtime    int64             `yaml:"mtime,omitempty"`
	Mode     uint32            `yaml:"mode,omitempty"`
	Checksum string            `yaml:"checksum,omitempty"`
	Target   string            `yaml:"target,omitempty"`
	Meta     map[string]string `yaml:"meta,omitempty"`
}

type patchDTO struct {
	Version int     `yaml:"version"`
	Ops     []opDTO `yaml:"ops"`
}

// Encode renders p as YAML, suitable for writing to a patch file and
// later feeding to Decode.
func Encode(p Patch) ([]byte, error) {
	doc := patchDTO{Version: 1, Ops: make([]opDTO, len(p))}
	for i, op := range p {
		d := opDTO{Kind: op.Kind, Path: op.Path}
		if e := op.Entry; e != nil {
			d.Size = e.Size
			d.Mtime = e.Mtime
			d.Mode = e.Mode
			d.Checksum = e.Checksum
			d.Target = e.Target
			d.Meta = e.Meta
		}
		doc.Ops[i] = d
	}
	return yaml.Marshal(&doc)
}

// Decode parses a patch file produced by Encode.
func Decode(b []byte) (Patch, error) {
	var doc patchDTO
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	p := make(Patch, len(doc.Ops))
	for i, d := range doc.Ops {
		e := &fstree.Entry{
			RelativePath: d.Path,
			Size:         d.Size,
			Mtime:        d.Mtime,
			Mode:         d.Mode,
			Checksum:     d.Checksum,
			Target:       d.Target,
			Meta:         d.Meta,
		}
		if e.IsDir() {
			e.RelativePath = strings.TrimSuffix(e.RelativePath, "/")
		}
		p[i] = Operation{Kind: d.Kind, Path: d.Path, Entry: e}
	}
	return p, nil
}
