package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const invoicePrefix = "invoices/"

// InvoiceKey builds the archive key for an uploaded invoice from the upload
// time and the client's filename.
func InvoiceKey(uploadedAt time.Time, filename string) string {
	return fmt.Sprintf("%s%d_%s", invoicePrefix, uploadedAt.UnixMilli(), sanitizeFilename(filename))
}

// sanitizeFilename keeps only the base name and drops characters that are
// awkward in object keys.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "invoice"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
}

// InvoiceFilename is the download name suggested for a product's invoice.
func InvoiceFilename(productName string) string {
	return fmt.Sprintf("%s-invoice.pdf", strings.ReplaceAll(productName, `"`, ""))
}
