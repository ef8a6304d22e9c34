// Package cos mirrors the teacher's cmn/cos grab-bag of small utilities,
// scoped here to what the simulator's ambient stack actually needs:
// module-scoped verbosity gating and an atomic-rename file writer.
package cos

import (
	"os"
	"path/filepath"
)

// Smodule names a subsystem for verbosity gating, mirroring cmn/cos's
// SmoduleXs-style constants.
type Smodule string

const (
	SmoduleSim   Smodule = "sim"
	SmoduleTrail Smodule = "trail"
	SmoduleCache Smodule = "cache"
	SmoduleIcnt  Smodule = "icnt"
)

// FastV reports whether verbose-level logging is enabled for a module at
// or below the given level, the same call shape as config.FastV in the
// teacher repo.
func FastV(verbose bool, level int, _ Smodule) bool {
	return verbose && level <= 5
}

// WriteFileAtomic writes data to path via a temp file + rename, the same
// crash-safety idiom cmn/cos uses for config/state persistence.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
