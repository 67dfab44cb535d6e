package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// member is one top-level key/value pair with its byte span. start is the
// offset of the opening quote of the key, end the offset just past the
// value.
type member struct {
	key        string
	start, end int
	value      json.RawMessage
}

// document is a JSON object located inside its source bytes, so single
// members can be replaced without re-encoding the rest.
type document struct {
	data    []byte
	open    int // offset of '{'
	close   int // offset of '}'
	members []member
}

func parseDocument(data []byte) (*document, error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("top-level value is %s, not an object", describe(tok))
	}

	doc := &document{data: data, open: int(dec.InputOffset()) - 1}
	prev := int(dec.InputOffset())
	for dec.More() {
		start := skipSeparators(data, prev)
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		end := int(dec.InputOffset())
		doc.members = append(doc.members, member{key: key, start: start, end: end, value: value})
		prev = end
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	doc.close = int(dec.InputOffset()) - 1
	return doc, nil
}

// find returns the index of the last member named key, or -1. Later
// duplicates win, as they do for encoding/json.
func (d *document) find(key string) int {
	for i := len(d.members) - 1; i >= 0; i-- {
		if d.members[i].key == key {
			return i
		}
	}
	return -1
}

// set returns the document bytes with key bound to the raw value,
// replacing an existing member in place or appending a new one.
func (d *document) set(key string, value []byte) []byte {
	pair := append(quoteKey(key), ": "...)
	pair = append(pair, value...)

	if i := d.find(key); i >= 0 {
		m := d.members[i]
		return splice(d.data, m.start, m.end, pair)
	}

	if len(d.members) == 0 {
		inner := append([]byte("\n  "), pair...)
		inner = append(inner, '\n')
		return splice(d.data, d.open+1, d.close, inner)
	}

	last := d.members[len(d.members)-1]
	insert := []byte{','}
	if indent, ok := d.indentOf(last); ok {
		insert = append(insert, '\n')
		insert = append(insert, indent...)
	} else {
		insert = append(insert, ' ')
	}
	insert = append(insert, pair...)
	return splice(d.data, last.end, last.end, insert)
}

// remove returns the document bytes without any member named key, each
// together with its separator. It reports false when key is absent.
func (d *document) remove(key string) ([]byte, bool) {
	data, removed := d.data, false
	for cur := d; ; {
		i := cur.find(key)
		if i < 0 {
			return data, removed
		}
		data, removed = cur.removeAt(i), true

		// Offsets shift with every splice, so locate the next duplicate
		// in the edited bytes.
		next, err := parseDocument(data)
		if err != nil {
			return data, removed
		}
		cur = next
	}
}

func (d *document) removeAt(i int) []byte {
	m := d.members[i]
	switch {
	case len(d.members) == 1:
		return splice(d.data, d.open+1, d.close, nil)
	case i < len(d.members)-1:
		return splice(d.data, m.start, d.members[i+1].start, nil)
	default:
		return splice(d.data, d.members[i-1].end, m.end, nil)
	}
}

// indentOf returns the whitespace preceding m on its own line.
func (d *document) indentOf(m member) ([]byte, bool) {
	lineStart := bytes.LastIndexByte(d.data[:m.start], '\n')
	if lineStart < 0 || lineStart < d.open {
		return nil, false
	}
	indent := d.data[lineStart+1 : m.start]
	if len(bytes.TrimLeft(indent, " \t")) != 0 {
		return nil, false
	}
	return indent, true
}

func splice(data []byte, from, to int, with []byte) []byte {
	out := make([]byte, 0, len(data)-(to-from)+len(with))
	out = append(out, data[:from]...)
	out = append(out, with...)
	return append(out, data[to:]...)
}

func skipSeparators(data []byte, i int) int {
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\r', '\n', ',':
			i++
		default:
			return i
		}
	}
	return i
}

func quoteKey(key string) []byte {
	b, _ := json.Marshal(key)
	return b
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return "an array"
	case string:
		return "a string"
	case float64, json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
