// Package media lists stored capture output under a root directory for
// the MEDIA_LIST dispatcher request and the HTTP media surface.
package media

import (
	"os"
	"path/filepath"
	"sort"
)

// Item describes one file under the media root.
type Item struct {
	Path        string // relative to the media root
	Size        int64
	TimestampMs int64
}

// Lister walks a media root directory.
type Lister struct {
	root string
}

// New creates a Lister rooted at root.
func New(root string) *Lister {
	return &Lister{root: root}
}

// List returns up to limit items starting at offset, ordered by path, plus
// the total item count.
func (l *Lister) List(offset, limit int) ([]Item, int, error) {
	var all []Item
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == l.root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		all = append(all, Item{
			Path:        rel,
			Size:        info.Size(),
			TimestampMs: info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, 0, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// ResolvePath joins the media root with a client-supplied relative path,
// rejecting any attempt to escape the root via ".." traversal (callers
// treat a rejected path as a 404).
func (l *Lister) ResolvePath(relative string) (string, bool) {
	cleaned := filepath.Clean(relative)
	if cleaned == ".." || filepathHasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", false
	}
	return filepath.Join(l.root, cleaned), true
}

func filepathHasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}
