package constants

// ProcessType selects the extraction schema applied to a document.
type ProcessType string

const (
	ProcessTypeInvoice ProcessType = "invoice"
)

// ProcessTypes holds the currently supported process types.
var ProcessTypes = []ProcessType{ProcessTypeInvoice}

func IsValidProcessType(s string) bool {
	for _, pt := range ProcessTypes {
		if s == string(pt) {
			return true
		}
	}
	return false
}
