package linear

import "github.com/arloliu/regionfile/internal/fsutil"

// VerifyFile reports whether a file carries a well-formed stream envelope:
// minimum length, decodable header with valid signature and supported
// version, and a matching trailing signature. The compressed payload is not
// decompressed.
func VerifyFile(path string) bool {
	data, closeMmap, err := fsutil.MmapFile(path)
	if err != nil {
		return false
	}
	defer closeMmap()

	if len(data) < HeaderSize+footerSize {
		return false
	}

	h, err := parseHeader(data)
	if err != nil {
		return false
	}

	if !h.validSignature() || !h.supportedVersion() {
		return false
	}

	return engine.Uint64(data[len(data)-footerSize:]) == Signature
}
