package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	maxSegmentPayload = 65533
	// 14 bytes of ICC_PROFILE header (name, sequence number, chunk count)
	maxICCChunk = maxSegmentPayload - 14
)

// InjectJPEG inserts an APP1 Exif segment and APP2 ICC_PROFILE segments into
// an encoded JPEG stream, right after SOI and any leading APP0 segment.
// Empty blobs are skipped. An EXIF block too large for one segment is an
// error; ICC profiles are split across as many segments as needed.
func InjectJPEG(jpegData, icc, exif []byte) ([]byte, error) {
	if len(jpegData) < 4 || jpegData[0] != 0xFF || jpegData[1] != 0xD8 {
		return nil, ErrNotJPEG
	}
	if len(icc) == 0 && len(exif) == 0 {
		return jpegData, nil
	}
	if len(exif)+len(exifHeader) > maxSegmentPayload {
		return nil, fmt.Errorf("metadata: exif block of %d bytes exceeds one APP1 segment", len(exif))
	}

	insertAt := 2
	if len(jpegData) >= 6 && jpegData[2] == 0xFF && jpegData[3] == 0xE0 {
		app0 := int(binary.BigEndian.Uint16(jpegData[4:6]))
		if 4+app0 <= len(jpegData) {
			insertAt = 2 + 2 + app0
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(jpegData) + len(icc) + len(exif) + 64)
	buf.Write(jpegData[:insertAt])

	if len(exif) > 0 {
		writeSegment(&buf, 0xE1, exifHeader, exif)
	}
	if len(icc) > 0 {
		count := (len(icc) + maxICCChunk - 1) / maxICCChunk
		if count > 255 {
			return nil, fmt.Errorf("metadata: icc profile of %d bytes is too large", len(icc))
		}
		for i := 0; i < count; i++ {
			lo := i * maxICCChunk
			hi := min(lo+maxICCChunk, len(icc))
			header := append(append([]byte{}, iccHeader...), byte(i+1), byte(count))
			writeSegment(&buf, 0xE2, header, icc[lo:hi])
		}
	}

	buf.Write(jpegData[insertAt:])
	return buf.Bytes(), nil
}

func writeSegment(buf *bytes.Buffer, marker byte, header, body []byte) {
	length := 2 + len(header) + len(body)
	buf.Write([]byte{0xFF, marker, byte(length >> 8), byte(length)})
	buf.Write(header)
	buf.Write(body)
}
