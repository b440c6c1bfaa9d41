package processing

import "bytes"

// JPEG marker constants.
const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
)

var exifHeader = []byte("Exif\x00\x00")

// exifSegment returns the Exif APP1 segment of a JPEG byte stream, marker
// bytes included, or nil when the stream is not a JPEG or carries none.
func exifSegment(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return nil
		}
		marker := data[i+1]
		if marker == markerSOS {
			// Entropy-coded data starts; no metadata past this point.
			return nil
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		if length < 2 || i+2+length > len(data) {
			return nil
		}
		segment := data[i : i+2+length]
		if marker == markerAPP1 && bytes.HasPrefix(segment[4:], exifHeader) {
			return segment
		}
		i += 2 + length
	}
	return nil
}

// spliceExif inserts an APP1 segment directly after the SOI marker of a JPEG
// byte stream. The input is returned unchanged when it is not a JPEG.
func spliceExif(jpegData, segment []byte) []byte {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != markerSOI {
		return jpegData
	}
	out := make([]byte, 0, len(jpegData)+len(segment))
	out = append(out, jpegData[:2]...)
	out = append(out, segment...)
	out = append(out, jpegData[2:]...)
	return out
}
