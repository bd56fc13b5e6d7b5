// Package container identifies the container format of an Office document and
// pulls the raw VBA project bytes out of it.
package container

import "bytes"

// Kind is the structural container format of a document.
type Kind string

const (
	OleCompound  Kind = "ole"
	ZipPackage   Kind = "zip"
	Unrecognized Kind = "unrecognized"
)

// oleSignature is the compound-file binary header magic.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var zipSignatures = [][]byte{
	{0x50, 0x4B, 0x03, 0x04}, // local file header
	{0x50, 0x4B, 0x05, 0x06}, // end of central directory (empty archive)
}

// Detect sniffs the leading bytes of data. The declared extension is never
// consulted: a renamed file is classified by what it actually is.
func Detect(data []byte) Kind {
	if bytes.HasPrefix(data, oleSignature) {
		return OleCompound
	}
	for _, sig := range zipSignatures {
		if bytes.HasPrefix(data, sig) {
			return ZipPackage
		}
	}
	return Unrecognized
}
