// Package manifest describes the services a project declares and loads
// them from the project's manifest file.
package manifest

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
)

// ServiceDescriptor declares one microservice: what it is written in,
// where its entry script lives and how it binds to the network.
// Descriptors are read once per session and never modified.
type ServiceDescriptor struct {
	Name       string `json:"name" yaml:"name"`
	Language   string `json:"language" yaml:"language"`
	FolderName string `json:"folderName" yaml:"folderName"`
	FileName   string `json:"fileName" yaml:"fileName"`
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`

	PrivilegedIPAddresses []string `json:"privilegedIpAddresses,omitempty" yaml:"privilegedIpAddresses,omitempty"`
	CORSEnabled           bool     `json:"corsEnabled,omitempty" yaml:"corsEnabled,omitempty"`
}

// ScriptPath returns the service's entry script inside projectPath, in the
// host path syntax of projectPath.
func (d ServiceDescriptor) ScriptPath(projectPath string) string {
	return pathresolve.JoinHost(projectPath, d.FolderName, d.FileName)
}

// Address returns host:port, or an empty string when no port is declared.
func (d ServiceDescriptor) Address() string {
	if d.Port == 0 {
		return ""
	}
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, d.Port)
}

// NormalizedLanguage returns the language in the form used as an
// interpreter key.
func (d ServiceDescriptor) NormalizedLanguage() string {
	return strings.ToLower(strings.TrimSpace(d.Language))
}

// Validate checks the fields needed to launch the service. The language is
// not checked here: an empty or unknown language only makes the service
// unsupported. index is used only to name the offending field.
func (d ServiceDescriptor) Validate(index int) error {
	field := func(name string) string { return fmt.Sprintf("services[%d].%s", index, name) }

	if strings.TrimSpace(d.Name) == "" {
		return errors.NewValidationError("name is required").
			WithField(field("name")).WithCause(errors.ErrManifestInvalid)
	}
	if strings.TrimSpace(d.FileName) == "" {
		return errors.NewValidationError("fileName is required").
			WithField(field("fileName")).WithValue(d.Name).WithCause(errors.ErrManifestInvalid)
	}
	if d.Port < 0 || d.Port > 65535 {
		return errors.NewValidationError("port must be between 0 and 65535").
			WithField(field("port")).WithValue(d.Port).WithCause(errors.ErrManifestInvalid)
	}
	return nil
}
