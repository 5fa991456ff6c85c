package stream

import (
	"os"
	"time"
)

// Fingerprint holds stat-based identity for a file.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stat creates a Fingerprint from an on-disk file.
func Stat(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ModTimeString renders the modification time for persisted metadata.
func (f Fingerprint) ModTimeString() string {
	return f.ModTime.UTC().Format(time.RFC3339Nano)
}

// Matches reports whether size and modification time agree.
func (f Fingerprint) Matches(o Fingerprint) bool {
	return f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}
