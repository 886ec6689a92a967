// Package amanzixml reads and patches Amanzi input descriptors.
//
// Two dialects are understood: the Teuchos ParameterList form
//
//	<ParameterList name="Regions">
//	  <ParameterList name="Obs_r1">
//	    <ParameterList name="Region: Point">
//	      <Parameter name="Coordinate" type="Array(double)" value="{0.0, 0.0}"/>
//
// and the element form of the newer input schema
//
//	<regions>
//	  <point name="Obs_r1" coordinate="(0.0, 0.0, 0.0)"/>
//
// The document is held as a generic element tree so that patched descriptors
// keep every element the harness does not know about.
package amanzixml

import (
	"encoding/xml"
	"strings"
)

// Node is one XML element.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets (or adds) the named attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name.Local == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// Name returns the "name" attribute.
func (n *Node) Name() string {
	v, _ := n.Attr("name")
	return v
}

// Is reports whether n is a <tag name="name"> element.
func (n *Node) Is(tag, name string) bool {
	return n.XMLName.Local == tag && n.Name() == name
}

// Child returns the first direct child with the given tag and name.
func (n *Node) Child(tag, name string) *Node {
	for i := range n.Nodes {
		if n.Nodes[i].Is(tag, name) {
			return &n.Nodes[i]
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for i := range n.Nodes {
		n.Nodes[i].Walk(fn)
	}
}

// Find returns the first element in document order matching pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// trim drops indentation whitespace collected as character data so the tree
// re-indents cleanly when written.
func (n *Node) trim() {
	n.Text = strings.TrimSpace(n.Text)
	for i := range n.Nodes {
		n.Nodes[i].trim()
	}
}
