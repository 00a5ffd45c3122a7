package agents

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rhuss/enginehub/pkg/debug"
)

// DirName is the agents directory below the user data directory.
const DirName = "agents"

// DirPath returns the agents directory for a user data directory.
func DirPath(userDataDir string) string {
	return filepath.Join(userDataDir, DirName)
}

// Load reads every regular file in dir as an agent definition, in
// directory order. Files that cannot be read or parsed are logged and
// skipped. A missing directory yields no agents and no log output.
func Load(dir string) []*Agent {
	agents := []*Agent{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("error retrieving agents", "dir", dir, "error", err)
		}
		return agents
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("error reading agent file", "path", path, "error", err)
			continue
		}
		a, err := FromJSON(data)
		if err != nil {
			slog.Warn("error reading agent file", "path", path, "error", err)
			continue
		}
		agents = append(agents, a)
	}

	debug.Log("agents", "agents loaded", "dir", dir, "count", len(agents))
	return agents
}
