package document

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Binary codec for the document. The persisted form is an update stream:
// a 5-byte header followed by length-prefixed update frames, each frame a
// JSON-encoded batch of operations. Decoding starts from the empty document
// and applies frames in order, so a snapshot is simply a stream with one
// frame that rebuilds the whole state. Byte-for-byte determinism is not
// guaranteed; identity and order of nodes and edges are.

var streamMagic = []byte("CDOC1")

// ErrStateEmpty signals a zero-length state blob, distinct from an absent one
var ErrStateEmpty = errors.New("document state is empty")

// ErrStateCorrupt signals an undecodable state blob
var ErrStateCorrupt = errors.New("document state is corrupt")

const (
	opSetTitle    = "setTitle"
	opTitleInsert = "titleInsert"
	opTitleDelete = "titleDelete"
	opInsertNodes = "insertNodes"
	opDeleteNodes = "deleteNodes"
	opInsertEdges = "insertEdges"
	opDeleteEdges = "deleteEdges"
	opUpdateNode  = "updateNode"
)

type op struct {
	Kind  string `json:"kind"`
	Index int    `json:"index,omitempty"`
	Count int    `json:"count,omitempty"`
	Text  string `json:"text,omitempty"`
	Nodes []Node `json:"nodes,omitempty"`
	Edges []Edge `json:"edges,omitempty"`
}

type update struct {
	Ops []op `json:"ops"`
}

// Encode serializes the document as a single-frame snapshot stream.
// Decode(Encode(d)) reconstructs an equivalent document.
func Encode(d *Document) ([]byte, error) {
	snap := update{Ops: []op{
		{Kind: opSetTitle, Text: d.title},
		{Kind: opInsertNodes, Index: 0, Nodes: d.nodes},
		{Kind: opInsertEdges, Index: 0, Edges: d.edges},
	}}
	var buf bytes.Buffer
	buf.Write(streamMagic)
	if err := appendFrame(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes an update stream into a fully materialized document.
// A zero-length blob returns ErrStateEmpty; any framing or payload problem
// returns an error wrapping ErrStateCorrupt. A header with zero frames
// yields the empty document.
func Decode(data []byte) (*Document, error) {
	d := New()
	if err := ApplyUpdate(d, data); err != nil {
		return nil, err
	}
	return d, nil
}

// ApplyUpdate replays an incremental update stream on top of an existing
// document, so index-based ops land on d's current sequences. The stream
// carries the same header as a full state blob.
func ApplyUpdate(d *Document, data []byte) error {
	if len(data) == 0 {
		return ErrStateEmpty
	}
	if len(data) < len(streamMagic) || !bytes.Equal(data[:len(streamMagic)], streamMagic) {
		return fmt.Errorf("%w: bad header", ErrStateCorrupt)
	}
	rest := data[len(streamMagic):]
	for len(rest) > 0 {
		frameLen, n := binary.Uvarint(rest)
		if n <= 0 || uint64(len(rest)-n) < frameLen {
			return fmt.Errorf("%w: truncated frame", ErrStateCorrupt)
		}
		var up update
		if err := json.Unmarshal(rest[n:n+int(frameLen)], &up); err != nil {
			return fmt.Errorf("%w: %v", ErrStateCorrupt, err)
		}
		if err := d.apply(up); err != nil {
			return fmt.Errorf("%w: %v", ErrStateCorrupt, err)
		}
		rest = rest[n+int(frameLen):]
	}
	return nil
}

func (d *Document) apply(up update) error {
	for _, o := range up.Ops {
		switch o.Kind {
		case opSetTitle:
			d.SetTitle(o.Text)
		case opTitleInsert:
			if o.Index < 0 || o.Index > len(d.title) {
				return fmt.Errorf("title insert index %d out of range", o.Index)
			}
			d.title = d.title[:o.Index] + o.Text + d.title[o.Index:]
		case opTitleDelete:
			if o.Index < 0 || o.Index > len(d.title) {
				return fmt.Errorf("title delete index %d out of range", o.Index)
			}
			end := o.Index + o.Count
			if end > len(d.title) {
				end = len(d.title)
			}
			d.title = d.title[:o.Index] + d.title[end:]
		case opInsertNodes:
			d.InsertNodes(o.Index, o.Nodes...)
		case opDeleteNodes:
			d.DeleteNodes(o.Index, o.Count)
		case opInsertEdges:
			d.InsertEdges(o.Index, o.Edges...)
		case opDeleteEdges:
			d.DeleteEdges(o.Index, o.Count)
		case opUpdateNode:
			if len(o.Nodes) != 1 {
				return fmt.Errorf("updateNode expects exactly one node, got %d", len(o.Nodes))
			}
			d.UpdateNode(o.Nodes[0])
		default:
			return fmt.Errorf("unknown op kind %q", o.Kind)
		}
	}
	return nil
}

func appendFrame(buf *bytes.Buffer, up update) error {
	payload, err := json.Marshal(up)
	if err != nil {
		return err
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	buf.Write(lenBuf[:n])
	buf.Write(payload)
	return nil
}

// encodeUpdate serializes a single update as a standalone stream fragment.
// Used by tests to build multi-frame streams.
func encodeUpdate(up update) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(streamMagic)
	if err := appendFrame(&buf, up); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
