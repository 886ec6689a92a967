package amanzixml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amanzi/verification/internal/errs"
)

// ParameterList dialect names.
const (
	tagList  = "ParameterList"
	tagParam = "Parameter"

	listRegions     = "Regions"
	listPoint       = "Region: Point"
	listBox         = "Region: Box"
	listReadMesh    = "Read Mesh File"
	paramCoordinate = "Coordinate"
	paramLow        = "Low Coordinate"
	paramHigh       = "High Coordinate"
	paramObsFile    = "Observation Output Filename"
	paramFile       = "File"
)

// Descriptor is a parsed Amanzi input file.
type Descriptor struct {
	Root Node
}

// Parse reads a descriptor from r.
func Parse(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := xml.NewDecoder(r).Decode(&d.Root); err != nil {
		return nil, fmt.Errorf("parse input descriptor: %w", err)
	}
	d.Root.trim()
	return &d, nil
}

// Load reads the descriptor at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.FileAccess("read input descriptor", path, err)
	}
	d, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// parameterList reports whether the descriptor uses the ParameterList dialect.
func (d *Descriptor) parameterList() bool {
	return d.Root.XMLName.Local == tagList
}

// ObservationFilename returns the observation output file name.
func (d *Descriptor) ObservationFilename() (string, error) {
	if d.parameterList() {
		p := d.Root.Find(func(n *Node) bool { return n.Is(tagParam, paramObsFile) })
		if p == nil {
			return "", errs.Lookup("observation output filename", paramObsFile)
		}
		v, _ := p.Attr("value")
		return v, nil
	}

	obs := d.Root.Find(func(n *Node) bool { return n.XMLName.Local == "observations" })
	if obs != nil {
		for i := range obs.Nodes {
			if obs.Nodes[i].XMLName.Local == "filename" && obs.Nodes[i].Text != "" {
				return obs.Nodes[i].Text, nil
			}
		}
	}
	return "", errs.Lookup("observation output filename", "observations/filename")
}

// Coordinates maps region name to coordinate for every point region, and to
// the center of every box region.
func (d *Descriptor) Coordinates() (map[string][]float64, error) {
	if d.parameterList() {
		return d.listCoordinates()
	}
	return d.elementCoordinates()
}

func (d *Descriptor) listCoordinates() (map[string][]float64, error) {
	coords := make(map[string][]float64)
	regions := d.Root.Find(func(n *Node) bool { return n.Is(tagList, listRegions) })
	if regions == nil {
		return coords, nil
	}

	for i := range regions.Nodes {
		region := &regions.Nodes[i]
		if region.XMLName.Local != tagList {
			continue
		}
		name := region.Name()

		if point := region.Child(tagList, listPoint); point != nil {
			c, err := paramArray(point, paramCoordinate)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", name, err)
			}
			coords[name] = c
			continue
		}
		if box := region.Child(tagList, listBox); box != nil {
			lo, err := paramArray(box, paramLow)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", name, err)
			}
			hi, err := paramArray(box, paramHigh)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", name, err)
			}
			c, err := center(lo, hi)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", name, err)
			}
			coords[name] = c
		}
	}
	return coords, nil
}

func (d *Descriptor) elementCoordinates() (map[string][]float64, error) {
	coords := make(map[string][]float64)
	regions := d.Root.Find(func(n *Node) bool { return n.XMLName.Local == "regions" })
	if regions == nil {
		return coords, nil
	}

	var visit func(n *Node, name string) error
	visit = func(n *Node, name string) error {
		if own := n.Name(); own != "" {
			name = own
		}
		switch n.XMLName.Local {
		case "point":
			raw, ok := n.Attr("coordinate")
			if !ok {
				return fmt.Errorf("region %q: point has no coordinate", name)
			}
			c, err := ParseArray(raw)
			if err != nil {
				return fmt.Errorf("region %q: %w", name, err)
			}
			coords[name] = c
		case "box":
			lo, err := attrArray(n, "low_coordinates")
			if err != nil {
				return fmt.Errorf("region %q: %w", name, err)
			}
			hi, err := attrArray(n, "high_coordinates")
			if err != nil {
				return fmt.Errorf("region %q: %w", name, err)
			}
			c, err := center(lo, hi)
			if err != nil {
				return fmt.Errorf("region %q: %w", name, err)
			}
			coords[name] = c
		default:
			for i := range n.Nodes {
				if err := visit(&n.Nodes[i], name); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for i := range regions.Nodes {
		if err := visit(&regions.Nodes[i], ""); err != nil {
			return nil, err
		}
	}
	return coords, nil
}

func paramArray(list *Node, name string) ([]float64, error) {
	p := list.Child(tagParam, name)
	if p == nil {
		return nil, fmt.Errorf("missing parameter %q", name)
	}
	v, _ := p.Attr("value")
	return ParseArray(v)
}

func attrArray(n *Node, name string) ([]float64, error) {
	v, ok := n.Attr(name)
	if !ok {
		return nil, fmt.Errorf("missing attribute %q", name)
	}
	return ParseArray(v)
}

func center(lo, hi []float64) ([]float64, error) {
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("box corners have different dimensions (%d, %d)", len(lo), len(hi))
	}
	c := make([]float64, len(lo))
	for i := range lo {
		c[i] = (lo[i] + hi[i]) / 2.0
	}
	return c, nil
}

// ParseArray parses "{1.0, 2.0}" or "(1.0, 2.0, 3.0)" into floats.
func ParseArray(s string) ([]float64, error) {
	trimmed := strings.Trim(strings.TrimSpace(s), "{}()[]")
	if strings.TrimSpace(trimmed) == "" {
		return nil, fmt.Errorf("empty array %q", s)
	}
	parts := strings.Split(trimmed, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse array %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SetParameter sets the value of every Parameter named name and returns how
// many were changed. In the element dialect it sets the text of every element
// whose tag is name.
func (d *Descriptor) SetParameter(name, value string) int {
	list := d.parameterList()
	changed := 0
	d.Root.Walk(func(n *Node) bool {
		switch {
		case list && n.Is(tagParam, name):
			n.SetAttr("value", value)
			changed++
		case !list && n.XMLName.Local == name:
			n.Text = value
			changed++
		}
		return true
	})
	return changed
}

// SetMeshFile points the descriptor at a different mesh file.
func (d *Descriptor) SetMeshFile(path string) error {
	if d.parameterList() {
		read := d.Root.Find(func(n *Node) bool { return n.Is(tagList, listReadMesh) })
		if read == nil {
			return errs.Lookup("mesh file parameter", listReadMesh)
		}
		p := read.Child(tagParam, paramFile)
		if p == nil {
			return errs.Lookup("mesh file parameter", listReadMesh+"/"+paramFile)
		}
		p.SetAttr("value", path)
		return nil
	}

	mesh := d.Root.Find(func(n *Node) bool { return n.XMLName.Local == "mesh" })
	if mesh != nil {
		for i := range mesh.Nodes {
			if mesh.Nodes[i].XMLName.Local == "file" {
				mesh.Nodes[i].Text = path
				return nil
			}
		}
	}
	return errs.Lookup("mesh file parameter", "mesh/file")
}

// Write encodes the descriptor with an XML header.
func (d *Descriptor) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&d.Root); err != nil {
		return fmt.Errorf("encode input descriptor: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the descriptor to path.
func (d *Descriptor) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errs.FileAccess("write input descriptor", path, err)
	}
	return nil
}
