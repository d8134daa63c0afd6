package definitions

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	gateman "github.com/sschakraborty/gateman-go/internal"
)

// Load walks apiDefDir and originDefDir recursively, parsing every *.json
// file it finds into an APIDefinition or Origin respectively. A file that
// cannot be read or parsed is logged at Warn and skipped -- it does not
// abort the load, matching the reference loader's "skip bad files, keep
// going" behavior.
func Load(apiDefDir, originDefDir string) (*Store, error) {
	store := NewStore()

	if err := walkJSON(apiDefDir, func(path string, data []byte) {
		var def gateman.APIDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			slog.Warn("skipping unparseable api definition", "path", path, "error", err)
			return
		}
		store.AddAPI(def)
	}); err != nil {
		return nil, err
	}

	if err := walkJSON(originDefDir, func(path string, data []byte) {
		var o gateman.Origin
		if err := json.Unmarshal(data, &o); err != nil {
			slog.Warn("skipping unparseable origin definition", "path", path, "error", err)
			return
		}
		store.AddOrigin(o)
	}); err != nil {
		return nil, err
	}

	return store, nil
}

// walkJSON recursively visits every *.json file under dir, calling fn with
// its path and contents. Unreadable files are logged and skipped; a missing
// root directory is treated as empty (no definitions), not an error, since
// a gateway may legitimately run with zero APIs or zero origins configured
// on one side.
func walkJSON(dir string, fn func(path string, data []byte)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable definitions path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("skipping unreadable definition file", "path", path, "error", readErr)
			return nil
		}
		fn(path, data)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
