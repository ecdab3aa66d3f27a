// internal/app/system/csvutil/limits.go
package csvutil

// Upload size and row limits for CSV processing.
const (
	MaxUploadSize = 1 << 20 // 1 MB
	MaxRows       = 2000
)
