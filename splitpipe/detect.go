package splitpipe

import (
	"bytes"
	"path/filepath"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// Zip local-file-header magic plus the empty-archive and spanned-archive
// end-record markers (a zip holding zero entries starts directly with the
// end-of-central-directory record).
var zipMagics = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

// Detect returns the split format for a file based on its leading bytes.
// Pure and error-free: anything without a recognized signature is Generic.
func Detect(name string, data []byte) Format {
	if bytes.HasPrefix(data, pdfMagic) {
		return FormatPDF
	}
	for _, m := range zipMagics {
		if bytes.HasPrefix(data, m) {
			return FormatArchive
		}
	}
	_ = name // signature-only: the extension never overrides content
	return FormatGeneric
}

// ExtensionHint returns the format a file's extension suggests. Used only
// for warning when the extension promises a structured format the signature
// does not confirm; it never drives dispatch.
func ExtensionHint(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".zip", ".jar", ".epub", ".cbz", ".docx", ".odt", ".xlsx", ".pptx":
		return FormatArchive
	default:
		return FormatGeneric
	}
}

// SupportedFormats returns all format kinds the engine can produce.
func SupportedFormats() []string {
	return []string{string(FormatPDF), string(FormatArchive), string(FormatGeneric)}
}
