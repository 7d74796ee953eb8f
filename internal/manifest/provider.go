package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	iofs "io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
)

// DefaultFileName is the manifest looked up in the project root.
const DefaultFileName = "services.json"

// File is the on-disk manifest layout. A bare list of descriptors is also
// accepted.
type File struct {
	Services []ServiceDescriptor `json:"services" yaml:"services"`
}

// Parse decodes manifest data. format is "json" or "yaml"; anything else is
// treated as JSON. Descriptors are returned as declared; a bad entry is
// reported by Validate and never fails the whole manifest.
func Parse(data []byte, format string) ([]ServiceDescriptor, error) {
	var services []ServiceDescriptor

	switch strings.ToLower(format) {
	case "yaml", "yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&services); err != nil {
				return nil, fmt.Errorf("parsing manifest: %w", err)
			}
		} else {
			var f File
			if err := node.Decode(&f); err != nil {
				return nil, fmt.Errorf("parsing manifest: %w", err)
			}
			services = f.Services
		}
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &services); err != nil {
				return nil, fmt.Errorf("parsing manifest: %w", err)
			}
		} else {
			var f File
			if err := json.Unmarshal(data, &f); err != nil {
				return nil, fmt.Errorf("parsing manifest: %w", err)
			}
			services = f.Services
		}
	}

	return services, nil
}

// FileProvider reads descriptors from a manifest file in the project root.
type FileProvider struct {
	fs       afero.Fs
	fileName string
}

// NewFileProvider creates a provider reading fileName (DefaultFileName when
// empty) from fs. A nil fs means the OS filesystem.
func NewFileProvider(fs afero.Fs, fileName string) *FileProvider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &FileProvider{fs: fs, fileName: fileName}
}

// Path returns the manifest path for projectPath.
func (p *FileProvider) Path(projectPath string) string {
	return pathresolve.JoinHost(projectPath, p.fileName)
}

// Services returns the descriptors declared for projectPath, in file order.
func (p *FileProvider) Services(ctx context.Context, projectPath string) ([]ServiceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if projectPath == "" {
		return nil, errors.NewValidationError("project path is required").WithField("projectPath")
	}

	manifestPath := p.Path(projectPath)
	data, err := afero.ReadFile(p.fs, manifestPath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, errors.NewNotFoundError("manifest", manifestPath).WithCause(err)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	format := strings.TrimPrefix(path.Ext(strings.ReplaceAll(p.fileName, `\`, "/")), ".")
	return Parse(data, format)
}
