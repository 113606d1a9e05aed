// Package metadata extracts embedded color profiles and EXIF blocks from
// supported containers and re-embeds them into encoded JPEG streams.
//
// EXIF payloads are handled as raw TIFF structures (starting with the
// "II*\x00" or "MM\x00*" byte order mark); the JPEG "Exif\x00\x00" header is
// stripped on extraction and added back on injection.
package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Metadata carries the opaque blobs that survive re-encoding
type Metadata struct {
	ICC  []byte
	EXIF []byte
	// Orientation is the EXIF orientation (1..8), 0 when absent or unreadable
	Orientation int
}

var (
	ErrNoOrientation = errors.New("metadata: orientation tag not found")
	ErrInvalidTIFF   = errors.New("metadata: invalid TIFF structure")
	ErrNotJPEG       = errors.New("metadata: not a JPEG stream")
)

const (
	tagOrientation = 0x0112
	tagICCProfile  = 0x8773
)

var (
	exifHeader  = []byte("Exif\x00\x00")
	iccHeader   = []byte("ICC_PROFILE\x00")
	pngMagic    = []byte("\x89PNG\r\n\x1a\n")
	tiffLEMagic = []byte("II*\x00")
	tiffBEMagic = []byte("MM\x00*")
)

// Extract sniffs the container format of data and pulls out ICC and EXIF
// blocks. Unknown containers yield empty metadata; malformed metadata never
// fails the decode of the pixels themselves.
func Extract(data []byte) Metadata {
	var md Metadata
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		md = extractJPEG(data)
	case bytes.HasPrefix(data, pngMagic):
		md = extractPNG(data)
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		md = extractWebP(data)
	case bytes.HasPrefix(data, tiffLEMagic) || bytes.HasPrefix(data, tiffBEMagic):
		md = extractTIFF(data)
	}
	if md.EXIF != nil && md.Orientation == 0 {
		if o, err := Orientation(md.EXIF); err == nil {
			md.Orientation = o
		}
	}
	return md
}

func extractJPEG(data []byte) Metadata {
	var md Metadata
	type iccChunk struct {
		seq  int
		data []byte
	}
	var chunks []iccChunk

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			break
		}
		marker := data[pos+1]
		if marker == 0xFF {
			pos++
			continue
		}
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			break
		}
		payload := data[pos+4 : pos+2+length]

		switch {
		case marker == 0xE1 && md.EXIF == nil && bytes.HasPrefix(payload, exifHeader):
			md.EXIF = clone(payload[len(exifHeader):])
		case marker == 0xE2 && bytes.HasPrefix(payload, iccHeader) && len(payload) >= len(iccHeader)+2:
			seq := int(payload[len(iccHeader)])
			chunks = append(chunks, iccChunk{seq: seq, data: payload[len(iccHeader)+2:]})
		}
		pos += 2 + length
	}

	if len(chunks) > 0 {
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
		var buf bytes.Buffer
		for _, c := range chunks {
			buf.Write(c.data)
		}
		md.ICC = buf.Bytes()
	}
	return md
}

func extractPNG(data []byte) Metadata {
	var md Metadata
	pos := len(pngMagic)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		kind := string(data[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if length < 0 || end+4 > len(data) {
			break
		}
		chunk := data[start:end]

		switch kind {
		case "iCCP":
			if icc, err := inflateICCP(chunk); err == nil {
				md.ICC = icc
			}
		case "eXIf":
			md.EXIF = clone(bytes.TrimPrefix(chunk, exifHeader))
		}
		if kind == "IEND" {
			break
		}
		pos = end + 4
	}
	return md
}

// inflateICCP decodes an iCCP chunk: name, NUL, method byte, zlib stream
func inflateICCP(chunk []byte) ([]byte, error) {
	nul := bytes.IndexByte(chunk, 0)
	if nul < 0 || nul+2 > len(chunk) {
		return nil, fmt.Errorf("metadata: malformed iCCP chunk")
	}
	zr, err := zlib.NewReader(bytes.NewReader(chunk[nul+2:]))
	if err != nil {
		return nil, fmt.Errorf("metadata: iCCP stream: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func extractWebP(data []byte) Metadata {
	var md Metadata
	pos := 12
	for pos+8 <= len(data) {
		kind := string(data[pos : pos+4])
		length := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		end := start + length
		if length < 0 || end > len(data) {
			break
		}
		switch kind {
		case "ICCP":
			md.ICC = clone(data[start:end])
		case "EXIF":
			md.EXIF = clone(bytes.TrimPrefix(data[start:end], exifHeader))
		}
		pos = end + length%2
	}
	return md
}

// extractTIFF reads the ICC profile and orientation straight out of IFD0.
// The container itself is TIFF, so there is no separate EXIF block to carry.
func extractTIFF(data []byte) Metadata {
	var md Metadata
	t, err := parseTIFF(data)
	if err != nil {
		return md
	}
	if e, ok := t.entry(tagICCProfile); ok {
		if raw, ok := t.entryBytes(e); ok {
			md.ICC = clone(raw)
		}
	}
	if e, ok := t.entry(tagOrientation); ok {
		md.Orientation = int(t.order.Uint16(t.data[e.valueAt : e.valueAt+2]))
	}
	return md
}

// Orientation returns the orientation tag stored in IFD0 of an EXIF payload
func Orientation(exif []byte) (int, error) {
	t, err := parseTIFF(exif)
	if err != nil {
		return 0, err
	}
	e, ok := t.entry(tagOrientation)
	if !ok {
		return 0, ErrNoOrientation
	}
	return int(t.order.Uint16(t.data[e.valueAt : e.valueAt+2])), nil
}

// NormalizeOrientation returns a copy of exif with the orientation tag set
// to 1 (upright). A payload without the tag is returned unchanged.
func NormalizeOrientation(exif []byte) ([]byte, error) {
	t, err := parseTIFF(exif)
	if err != nil {
		return nil, err
	}
	out := clone(exif)
	e, ok := t.entry(tagOrientation)
	if !ok {
		return out, nil
	}
	t.order.PutUint16(out[e.valueAt:e.valueAt+2], 1)
	return out, nil
}

type ifdEntry struct {
	tag     uint16
	kind    uint16
	count   uint32
	valueAt int // offset of the 4-byte value/offset field
}

type tiffView struct {
	data    []byte
	order   binary.ByteOrder
	entries []ifdEntry
}

func parseTIFF(data []byte) (*tiffView, error) {
	if len(data) < 8 {
		return nil, ErrInvalidTIFF
	}
	var order binary.ByteOrder
	switch {
	case bytes.HasPrefix(data, tiffLEMagic):
		order = binary.LittleEndian
	case bytes.HasPrefix(data, tiffBEMagic):
		order = binary.BigEndian
	default:
		return nil, ErrInvalidTIFF
	}

	ifd := int(order.Uint32(data[4:8]))
	if ifd < 8 || ifd+2 > len(data) {
		return nil, ErrInvalidTIFF
	}
	n := int(order.Uint16(data[ifd : ifd+2]))
	if ifd+2+n*12 > len(data) {
		return nil, ErrInvalidTIFF
	}

	t := &tiffView{data: data, order: order, entries: make([]ifdEntry, 0, n)}
	for i := 0; i < n; i++ {
		at := ifd + 2 + i*12
		t.entries = append(t.entries, ifdEntry{
			tag:     order.Uint16(data[at : at+2]),
			kind:    order.Uint16(data[at+2 : at+4]),
			count:   order.Uint32(data[at+4 : at+8]),
			valueAt: at + 8,
		})
	}
	return t, nil
}

func (t *tiffView) entry(tag uint16) (ifdEntry, bool) {
	for _, e := range t.entries {
		if e.tag == tag {
			return e, true
		}
	}
	return ifdEntry{}, false
}

// entryBytes resolves a BYTE/UNDEFINED entry to its payload
func (t *tiffView) entryBytes(e ifdEntry) ([]byte, bool) {
	n := int(e.count)
	if n <= 4 {
		return t.data[e.valueAt : e.valueAt+n], true
	}
	off := int(t.order.Uint32(t.data[e.valueAt : e.valueAt+4]))
	if off < 0 || off+n > len(t.data) {
		return nil, false
	}
	return t.data[off : off+n], true
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
