package files

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// ErrCompiledXML marks a resource file stored in Android's binary XML
// format, as found in an archive that was unzipped rather than decoded.
var ErrCompiledXML = errors.New("resource file is compiled binary XML")

// IsBinaryXML reports whether data starts with the binary XML chunk header
// (type 0x0003, header size 0x0008, little endian).
func IsBinaryXML(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x03 && data[1] == 0x00 && data[2] == 0x08 && data[3] == 0x00
}

// ParseXML parses data into an element tree that round-trips its
// formatting on output.
func ParseXML(path string, data []byte) (*etree.Document, error) {
	if IsBinaryXML(data) {
		return nil, &TreeError{Path: path, Err: ErrCompiledXML}
	}
	if err := checkNesting(data); err != nil {
		return nil, &TreeError{Path: path, Err: fmt.Errorf("parse xml: %w", err)}
	}
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &TreeError{Path: path, Err: fmt.Errorf("parse xml: %w", err)}
	}
	if doc.Root() == nil {
		return nil, &TreeError{Path: path, Err: fmt.Errorf("parse xml: no root element")}
	}
	return doc, nil
}

// SerializeXML renders doc without reformatting whitespace.
func SerializeXML(path string, doc *etree.Document) ([]byte, error) {
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, &TreeError{Path: path, Err: fmt.Errorf("write xml: %w", err)}
	}
	return out, nil
}

// FindNamed returns the first top-level <tag name="name"> under the root.
func FindNamed(doc *etree.Document, tag, name string) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	for _, el := range root.SelectElements(tag) {
		if el.SelectAttrValue("name", "") == name {
			return el
		}
	}
	return nil
}

// SetText replaces el's character data and reports whether it changed.
func SetText(el *etree.Element, value string) bool {
	if el.Text() == value && len(el.ChildElements()) == 0 {
		return false
	}
	for len(el.Child) > 0 {
		el.RemoveChild(el.Child[0])
	}
	el.SetText(value)
	return true
}

// WellFormed reports whether data parses as an XML document with a root.
func WellFormed(data []byte) bool {
	if checkNesting(data) != nil {
		return false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return false
	}
	return doc.Root() != nil
}

// checkNesting runs a strict token pass; the element tree reader does not
// verify that end tags match their start tags.
func checkNesting(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
