package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/puppetlink/internal/domain"
)

// Environment variables handed to every worker.
const (
	EnvImportPath    = "QML_IMPORT_PATH"
	EnvImport2Path   = "QML2_IMPORT_PATH"
	EnvResourcePaths = "QMLDESIGNER_RC_PATHS"
	EnvPuppetMode    = "QML_PUPPET_MODE"
	EnvPuppetRole    = "PUPPETLINK_ROLE"
)

// SceneSource is what the workers need to know about the document being
// edited.
type SceneSource struct {
	// ImportPaths are the module import directories of the project.
	ImportPaths []string

	// FileMapping is the resource mapping string, for example
	// "qrc:/=/path/to/project".
	FileMapping string
}

// BuildEnvironment returns the overlay applied on top of the inherited
// environment for role. User values win over computed ones.
func BuildEnvironment(role domain.Role, src SceneSource, user map[string]string) map[string]string {
	env := make(map[string]string, len(user)+5)

	if len(src.ImportPaths) > 0 {
		joined := strings.Join(src.ImportPaths, string(os.PathListSeparator))
		env[EnvImportPath] = joined
		env[EnvImport2Path] = joined
	}
	if src.FileMapping != "" {
		env[EnvResourcePaths] = src.FileMapping
	}
	env[EnvPuppetMode] = role.Mode
	env[EnvPuppetRole] = role.Name

	for k, v := range user {
		env[k] = v
	}
	return env
}

// CleanImportPaths drops empty entries and makes the rest absolute
// relative to base.
func CleanImportPaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
