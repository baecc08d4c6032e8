package constants

// DocumentType describes how a PDF's text has to be recovered.
type DocumentType string

// Stable values (stored in task payloads and queue key names).
const (
	DocTypeText              DocumentType = "text"               // text layer readable as-is
	DocTypeScanned           DocumentType = "scanned"            // rasterized, needs OCR
	DocTypePasswordProtected DocumentType = "password_protected" // opens only with a user password
	DocTypeCopyProtected     DocumentType = "copy_protected"     // viewer restrictions, text layer intact
)

// DocumentTypes lists every type in the order workers drain their queues.
var DocumentTypes = []DocumentType{
	DocTypeText,
	DocTypeScanned,
	DocTypePasswordProtected,
	DocTypeCopyProtected,
}

// ParseDocumentType canonicalizes the input, defaulting to DocTypeText.
func ParseDocumentType(s string) (DocumentType, bool) {
	for _, dt := range DocumentTypes {
		if s == string(dt) {
			return dt, true
		}
	}
	return DocTypeText, false
}
