package ingest

import (
	"os"
	"path/filepath"
	"sort"
)

// DirState classifies a directory handed to collection initialization
type DirState int

const (
	DirPopulated  DirState = iota // At least one regular file
	DirEmpty                      // Readable, no regular files
	DirUnreadable                 // Missing, not a directory, or not listable
)

func (s DirState) String() string {
	switch s {
	case DirPopulated:
		return "populated"
	case DirEmpty:
		return "empty"
	case DirUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// DirListing is the result of listing one directory
type DirListing struct {
	Dir   string
	State DirState
	Files []string // Absolute-or-joined paths of regular files, sorted
	Err   error    // Set when State is DirUnreadable
}

// ListDir lists the regular files directly inside dir. Subdirectories are
// not descended into. Symlinks are followed when they resolve to a regular
// file.
func ListDir(dir string) DirListing {
	listing := DirListing{Dir: dir, Files: make([]string, 0)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		listing.State = DirUnreadable
		listing.Err = err
		return listing
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.Type().IsRegular() {
			listing.Files = append(listing.Files, path)
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				listing.Files = append(listing.Files, path)
			}
		}
	}
	sort.Strings(listing.Files)

	if len(listing.Files) == 0 {
		listing.State = DirEmpty
	} else {
		listing.State = DirPopulated
	}
	return listing
}
