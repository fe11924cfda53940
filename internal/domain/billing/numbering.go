package billing

import "fmt"

// DocumentKind identifies a numbered document series. It is the sequence key
// and the default number prefix.
type DocumentKind string

const (
	DocumentReceipt     DocumentKind = "RCP"
	DocumentArrangement DocumentKind = "PA"
)

// FormatDocumentNumber renders a number like RCP-2024-00001.
// Values past 99999 widen rather than wrap.
func FormatDocumentNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}
