package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Common errors
var (
	ErrInvalidDocument = errors.New("document is not valid JSON")
	ErrInvalidSong     = errors.New("song must be a JSON object")
)

// IDField is the only field of a song the system interprets
const IDField = "id"

// Song is an opaque record. Only its "id" field carries meaning; every other
// field is passed through untouched.
type Song map[string]any

// ID is the canonical JSON text of a song id. The number 1 and the string "1"
// are different ids. A song without an id field has the empty ID.
type ID string

// NoID is the ID of a song that has no id field
const NoID ID = ""

// Collection is the ordered list of songs. Order is display order.
type Collection []Song

// Document is the persisted shape the client reads and writes
type Document struct {
	Songs Collection `json:"songs"`
}

// Ack is the acknowledgment returned by a successful write
type Ack struct {
	OK bool `json:"ok"`
}

// EmptyDocument is served whenever the stored document cannot be read
var EmptyDocument = []byte(`{"songs":[]}`)

// ID returns the canonical id of the song
func (s Song) ID() ID {
	v, ok := s[IDField]
	if !ok {
		return NoID
	}
	return IDOf(v)
}

// HasID reports whether the song's id equals id
func (s Song) HasID(id ID) bool {
	return s.ID() == id
}

// Clone returns a deep copy of the song. Nested JSON objects and arrays are
// copied too; scalar values are shared.
func (s Song) Clone() Song {
	if s == nil {
		return nil
	}
	out := make(Song, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Song:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// IDOf canonicalizes any Go or decoded JSON value into an ID
func IDOf(v any) ID {
	switch n := v.(type) {
	case json.Number:
		return ID(canonicalNumber(n.String()))
	case float64:
		return ID(strconv.FormatFloat(n, 'g', -1, 64))
	case float32:
		return ID(strconv.FormatFloat(float64(n), 'g', -1, 32))
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ID(fmt.Sprintf("%v", v))
	}
	return ID(b)
}

// ParseID reads an id typed by a user. Valid JSON scalars keep their JSON type,
// so 7 is a number and "7" (quoted) is a string; anything else is a bare string.
func ParseID(raw string) ID {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		switch v.(type) {
		case json.Number, string, bool, nil:
			return IDOf(v)
		}
	}
	return IDOf(raw)
}

func canonicalNumber(text string) string {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return text
}

// DecodeSong parses a single song object, keeping numbers as json.Number
func DecodeSong(data []byte) (Song, error) {
	var song Song
	if err := decode(bytes.NewReader(data), &song); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSong, err)
	}
	if song == nil {
		return nil, ErrInvalidSong
	}
	return song, nil
}

// DecodeDocument parses a persisted document. The shape is not validated: a
// body without "songs" yields a nil collection.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := decode(r, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}
