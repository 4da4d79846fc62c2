package constants

import "strings"

// AllowedExtensions holds the workbook extensions accepted for upload.
var AllowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"xltx": {},
	"xls":  {},
}

// MaxUploadBytesDefault caps a single workbook upload.
const MaxUploadBytesDefault = 20 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (with or without the dot) is an accepted workbook extension.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
