// Package localfs enumerates a local directory into the flat file
// list the send side of a transfer needs. It is an ambient
// collaborator (spec.md lists "local directory enumeration" as out of
// the core engine's scope), grounded on the teacher's
// utils.GetAllLocalIPs best-effort-skip iteration style.
package localfs

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"bitshare/internal/transfer"
)

// WalkDirectory flattens root into one transfer.FileEntry per regular
// file found under it. Relative paths always use forward slashes,
// regardless of host OS, so they arrive at the wire-format
// FileInfo.path already in the shape the receiver's path validator
// expects. Symlinks are not followed. A file that cannot be stat'd is
// skipped with a warning rather than aborting the whole walk.
func WalkDirectory(root string) ([]transfer.FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return singleFileEntry(root, info)
	}

	var entries []transfer.FileEntry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("localfs: skipping unreadable entry")
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			logrus.WithError(statErr).WithField("path", path).Warn("localfs: skipping unreadable file")
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			logrus.WithError(relErr).WithField("path", path).Warn("localfs: skipping file outside root")
			return nil
		}

		entries = append(entries, transfer.FileEntry{
			RelativePath: filepath.ToSlash(rel),
			AbsolutePath: path,
			Size:         fi.Size(),
			Modified:     fi.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

func singleFileEntry(path string, info os.FileInfo) ([]transfer.FileEntry, error) {
	return []transfer.FileEntry{{
		RelativePath: filepath.ToSlash(filepath.Base(path)),
		AbsolutePath: path,
		Size:         info.Size(),
		Modified:     info.ModTime(),
	}}, nil
}
