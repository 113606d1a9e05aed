package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// buildEXIF creates a little-endian TIFF block with a single orientation entry
func buildEXIF(orientation uint16) []byte {
	b := make([]byte, 8+2+12+4)
	copy(b, tiffLEMagic)
	binary.LittleEndian.PutUint32(b[4:8], 8)
	binary.LittleEndian.PutUint16(b[8:10], 1)
	binary.LittleEndian.PutUint16(b[10:12], tagOrientation)
	binary.LittleEndian.PutUint16(b[12:14], 3) // SHORT
	binary.LittleEndian.PutUint32(b[14:18], 1)
	binary.LittleEndian.PutUint16(b[18:20], orientation)
	return b
}

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func TestOrientation(t *testing.T) {
	o, err := Orientation(buildEXIF(6))
	if err != nil {
		t.Fatalf("Orientation failed: %v", err)
	}
	if o != 6 {
		t.Errorf("Expected orientation 6, got %d", o)
	}

	if _, err := Orientation([]byte("garbage")); err == nil {
		t.Error("Expected error for invalid payload")
	}
}

func TestNormalizeOrientation(t *testing.T) {
	exif := buildEXIF(8)
	out, err := NormalizeOrientation(exif)
	if err != nil {
		t.Fatalf("NormalizeOrientation failed: %v", err)
	}

	o, err := Orientation(out)
	if err != nil || o != 1 {
		t.Errorf("Expected normalized orientation 1, got %d (%v)", o, err)
	}

	// the source must stay untouched
	if o, _ := Orientation(exif); o != 8 {
		t.Errorf("Source EXIF was modified, orientation now %d", o)
	}
}

func TestInjectAndExtractJPEG(t *testing.T) {
	base := encodeTestJPEG(t)
	icc := bytes.Repeat([]byte{0xAB}, maxICCChunk+100) // forces two APP2 segments
	exif := buildEXIF(3)

	out, err := InjectJPEG(base, icc, exif)
	if err != nil {
		t.Fatalf("InjectJPEG failed: %v", err)
	}

	if _, err := jpeg.DecodeConfig(bytes.NewReader(out)); err != nil {
		t.Fatalf("Injected stream no longer decodes: %v", err)
	}

	md := Extract(out)
	if !bytes.Equal(md.ICC, icc) {
		t.Errorf("ICC round trip mismatch: got %d bytes, want %d", len(md.ICC), len(icc))
	}
	if !bytes.Equal(md.EXIF, exif) {
		t.Error("EXIF round trip mismatch")
	}
	if md.Orientation != 3 {
		t.Errorf("Expected orientation 3, got %d", md.Orientation)
	}
}

func TestInjectJPEGNoop(t *testing.T) {
	base := encodeTestJPEG(t)
	out, err := InjectJPEG(base, nil, nil)
	if err != nil {
		t.Fatalf("InjectJPEG failed: %v", err)
	}
	if !bytes.Equal(out, base) {
		t.Error("Expected unchanged stream when no metadata is supplied")
	}

	if _, err := InjectJPEG([]byte("not a jpeg"), []byte{1}, nil); err != ErrNotJPEG {
		t.Errorf("Expected ErrNotJPEG, got %v", err)
	}
}

func pngChunk(kind string, data []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(kind)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(data)
	binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func TestExtractPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{255, 0, 0, 255})
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatal(err)
	}
	raw := encoded.Bytes()

	icc := []byte("fake icc profile payload")
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(icc)
	zw.Close()
	iccp := append([]byte("sRGB\x00\x00"), z.Bytes()...)
	exif := buildEXIF(6)

	// splice iCCP and eXIf after IHDR (8 magic + 25 IHDR bytes)
	var withMeta bytes.Buffer
	withMeta.Write(raw[:33])
	withMeta.Write(pngChunk("iCCP", iccp))
	withMeta.Write(pngChunk("eXIf", exif))
	withMeta.Write(raw[33:])

	if _, err := png.Decode(bytes.NewReader(withMeta.Bytes())); err != nil {
		t.Fatalf("PNG with metadata no longer decodes: %v", err)
	}

	md := Extract(withMeta.Bytes())
	if !bytes.Equal(md.ICC, icc) {
		t.Errorf("Expected ICC %q, got %q", icc, md.ICC)
	}
	if !bytes.Equal(md.EXIF, exif) {
		t.Error("EXIF mismatch")
	}
	if md.Orientation != 6 {
		t.Errorf("Expected orientation 6, got %d", md.Orientation)
	}
}

func TestExtractWebPChunks(t *testing.T) {
	icc := []byte("icc!")
	exif := buildEXIF(2)

	var body bytes.Buffer
	body.WriteString("WEBP")
	writeChunk := func(kind string, data []byte) {
		body.WriteString(kind)
		binary.Write(&body, binary.LittleEndian, uint32(len(data)))
		body.Write(data)
		if len(data)%2 == 1 {
			body.WriteByte(0)
		}
	}
	writeChunk("VP8X", make([]byte, 10))
	writeChunk("ICCP", icc)
	writeChunk("EXIF", append(append([]byte{}, exifHeader...), exif...))

	var riff bytes.Buffer
	riff.WriteString("RIFF")
	binary.Write(&riff, binary.LittleEndian, uint32(body.Len()))
	riff.Write(body.Bytes())

	md := Extract(riff.Bytes())
	if !bytes.Equal(md.ICC, icc) {
		t.Errorf("Expected ICC %q, got %q", icc, md.ICC)
	}
	if !bytes.Equal(md.EXIF, exif) {
		t.Error("Expected EXIF header to be stripped")
	}
	if md.Orientation != 2 {
		t.Errorf("Expected orientation 2, got %d", md.Orientation)
	}
}

func TestExtractUnknown(t *testing.T) {
	md := Extract([]byte("plain text"))
	if md.ICC != nil || md.EXIF != nil || md.Orientation != 0 {
		t.Errorf("Expected empty metadata, got %+v", md)
	}
}
