package language

import "bytes"

// sniffSize is how much of a file's head is inspected for binary detection.
const sniffSize = 512

// IsBinaryContent reports whether data looks like binary content: a NUL byte
// within the first sniffSize bytes. Source files never contain one.
func IsBinaryContent(data []byte) bool {
	if len(data) > sniffSize {
		data = data[:sniffSize]
	}
	return bytes.IndexByte(data, 0) >= 0
}
