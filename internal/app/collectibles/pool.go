// Package collectibles provides the read-only pool of collectible identifiers
// the reward allocator draws from.
package collectibles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PoolProvider yields the current pool membership. Implementations must be
// safe for concurrent use; the allocator snapshots the pool once per call.
type PoolProvider interface {
	Members(ctx context.Context) ([]string, error)
}

var imageExtensions = map[string]bool{
	".svg":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// DirPool treats the image files of a directory as the collectible pool, one
// collectible per file name. Dotfiles, subdirectories, and non-image files
// are ignored. The directory is re-read on every call so drops into the
// directory show up without a restart.
type DirPool struct {
	dir string
}

// NewDirPool builds a pool over the given directory.
func NewDirPool(dir string) *DirPool {
	return &DirPool{dir: dir}
}

// Members lists the pool in sorted order.
func (p *DirPool) Members(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read collectibles dir: %w", err)
	}

	members := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		members = append(members, name)
	}
	sort.Strings(members)
	return members, nil
}

// StaticPool is a fixed pool, useful for tests and config-driven deployments.
type StaticPool []string

// Members returns a copy of the pool.
func (p StaticPool) Members(_ context.Context) ([]string, error) {
	members := make([]string, len(p))
	copy(members, p)
	return members, nil
}
