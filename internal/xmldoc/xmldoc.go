// Package xmldoc loads XML project files for attribute-level editing and
// writes them back.
package xmldoc

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/renameio"
	"golang.org/x/net/html/charset"
	"golang.org/x/xerrors"
)

// ParseError is returned when a document cannot be parsed, even after
// StripEncoding.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing %s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Document is a parsed XML file.
type Document struct {
	Path string
	doc  *etree.Document

	charset string // declared encoding to write back in, empty for UTF-8
	bom     bool
}

// Element is one element of a Document.
type Element struct {
	e *etree.Element
}

var xmlDeclRe = regexp.MustCompile(`^(\x{FEFF})?\s*<\?xml\s[^?]*?\bencoding\s*=\s*["']([^"']*)["'][^?]*\?>`)

const bom = "\ufeff"

// declaredCharset returns the encoding named by a leading XML declaration, or
// the empty string for UTF-8 and undeclared documents.
func declaredCharset(b []byte) string {
	m := xmlDeclRe.FindSubmatch(b)
	if m == nil {
		return ""
	}
	if enc := string(m[2]); !strings.EqualFold(enc, "utf-8") {
		return enc
	}
	return ""
}

// StripEncoding removes a leading XML declaration which names an encoding
// the decoder does not know (Visual Studio wrote some of those into files
// whose content is plain ASCII). A byte order mark before the declaration is
// kept. Declarations of known encodings, e.g. Windows-1252 or shift_jis, are
// left alone; Parse decodes them.
func StripEncoding(b []byte) []byte {
	m := xmlDeclRe.FindSubmatchIndex(b)
	if m == nil {
		return b
	}
	enc := string(b[m[4]:m[5]])
	if strings.EqualFold(enc, "utf-8") {
		return b
	}
	if e, _ := charset.Lookup(enc); e != nil {
		return b
	}
	var prefix []byte
	if m[2] >= 0 {
		prefix = b[m[2]:m[3]]
	}
	return append(append([]byte{}, prefix...), b[m[1]:]...)
}

// Parse parses b, which was read from path.
func Parse(path string, b []byte) (*Document, error) {
	d := &Document{Path: path}
	b = StripEncoding(b)
	if bytes.HasPrefix(b, []byte(bom)) {
		d.bom = true
		b = b[len(bom):]
	}
	d.charset = declaredCharset(b)

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	// Build events carry multi-line commands as &#x0D;&#x0A; in attribute
	// values, which must not be written back as literal line breaks.
	doc.WriteSettings.CanonicalAttrVal = true
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Root() == nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("no root element")}
	}
	d.doc = doc
	return d, nil
}

// Open reads and parses the document at path.
func Open(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Elements returns all elements named tag, in document order.
func (d *Document) Elements(tag string) []Element {
	var els []Element
	for _, e := range d.doc.FindElements("//" + tag) {
		els = append(els, Element{e})
	}
	return els
}

// Bytes returns the serialized document, in the encoding it was read in.
func (d *Document) Bytes() ([]byte, error) {
	b, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	if d.charset != "" {
		enc, _ := charset.Lookup(d.charset)
		if enc == nil {
			return nil, xerrors.Errorf("%s: unknown encoding %q", d.Path, d.charset)
		}
		if b, err = enc.NewEncoder().Bytes(b); err != nil {
			return nil, xerrors.Errorf("%s: encoding as %s: %w", d.Path, d.charset, err)
		}
	}
	if d.bom {
		b = append([]byte(bom), b...)
	}
	return b, nil
}

// Save writes the document back to its path. Source archives frequently
// contain read-only files, so write permission is forced first.
func (d *Document) Save() error {
	b, err := d.Bytes()
	if err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if fi, err := os.Stat(d.Path); err == nil {
		mode = fi.Mode().Perm() | 0200
		if err := os.Chmod(d.Path, mode); err != nil {
			return err
		}
	}
	return renameio.WriteFile(d.Path, b, mode)
}

// Attr returns the value of attribute name, or the empty string.
func (e Element) Attr(name string) string {
	return e.e.SelectAttrValue(name, "")
}

// SetAttr sets attribute name to value and reports whether the value changed.
// Attributes which do not exist yet are appended.
func (e Element) SetAttr(name, value string) bool {
	if a := e.e.SelectAttr(name); a != nil && a.Value == value {
		return false
	}
	e.e.CreateAttr(name, value)
	return true
}
