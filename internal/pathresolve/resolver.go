// Package pathresolve turns an interpreter path and a service script path
// into the command line that launches the service.
//
// Paths under a remote root (a Linux distribution exposed to a Windows host
// as \\wsl.localhost\<distro>\...) cannot be executed directly from the
// host. For those, the command is rewritten to go through the launcher with
// both paths translated into the distribution's own syntax.
package pathresolve

import (
	"strings"
)

// Default values used when Options leaves a field empty.
const (
	DefaultLauncher       = "wsl"
	DefaultUnbufferedFlag = "-u"
)

// DefaultRemoteRoots are the markers recognised when none are configured.
var DefaultRemoteRoots = []string{`\\wsl.localhost\`, `\\wsl$\`}

// Command is a fully resolved launch description.
type Command struct {
	Executable string
	Args       []string

	// Translated is true when the interpreter lived under a remote root and
	// the command goes through the launcher.
	Translated bool

	// Environment is the identifier of the remote environment (the
	// distribution name). Empty when not translated, and may be empty for a
	// malformed marked path.
	Environment string
}

// Argv returns the executable followed by its arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Executable)
	return append(argv, c.Args...)
}

// String renders the command for display. Arguments are not quoted.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Options configures a Resolver.
type Options struct {
	RemoteRoots    []string
	Launcher       string
	UnbufferedFlag string
}

// Resolver maps host paths to launch commands. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	roots    []string // normalised, lower-cased, ending in a backslash
	launcher string
	flag     string
}

// New creates a Resolver. Empty fields in opts fall back to the defaults.
func New(opts Options) *Resolver {
	roots := opts.RemoteRoots
	if len(roots) == 0 {
		roots = DefaultRemoteRoots
	}
	r := &Resolver{
		launcher: opts.Launcher,
		flag:     opts.UnbufferedFlag,
	}
	if r.launcher == "" {
		r.launcher = DefaultLauncher
	}
	if r.flag == "" {
		r.flag = DefaultUnbufferedFlag
	}
	for _, root := range roots {
		root = strings.ToLower(normalise(root))
		if root == "" {
			continue
		}
		if !strings.HasSuffix(root, `\`) {
			root += `\`
		}
		r.roots = append(r.roots, root)
	}
	return r
}

// Resolve builds the command for running servicePath with interpreterPath.
//
// When the interpreter is under a remote root the executable becomes the
// launcher and the arguments are "-d <env> <interpreter> <flag> <service>"
// with both paths translated. Otherwise both paths pass through unchanged.
// The unbuffered flag always precedes the service path.
func (r *Resolver) Resolve(interpreterPath, servicePath string) Command {
	env, interp, ok := r.split(interpreterPath)
	if !ok {
		return Command{
			Executable: interpreterPath,
			Args:       []string{r.flag, servicePath},
		}
	}

	svc := servicePath
	if _, translated, marked := r.split(servicePath); marked {
		svc = translated
	}

	return Command{
		Executable:  r.launcher,
		Args:        []string{"-d", env, interp, r.flag, svc},
		Translated:  true,
		Environment: env,
	}
}

// IsRemote reports whether path lies under one of the configured remote roots.
func (r *Resolver) IsRemote(path string) bool {
	_, ok := r.marker(path)
	return ok
}

// Translate returns the environment identifier and the in-environment path
// for a marked path. ok is false for unmarked paths.
func (r *Resolver) Translate(path string) (env, translated string, ok bool) {
	return r.split(path)
}

func (r *Resolver) marker(path string) (string, bool) {
	lower := strings.ToLower(normalise(path))
	for _, root := range r.roots {
		if strings.HasPrefix(lower, root) {
			return root, true
		}
	}
	return "", false
}

// split cuts a marked path into its identifier and a slash-separated
// remainder with a leading slash. "\\wsl$\Ubuntu" yields ("Ubuntu", "/").
func (r *Resolver) split(path string) (env, translated string, ok bool) {
	root, ok := r.marker(path)
	if !ok {
		return "", "", false
	}
	rest := normalise(path)[len(root):]

	env, remainder, _ := strings.Cut(rest, `\`)
	return env, "/" + strings.ReplaceAll(remainder, `\`, "/"), true
}

// normalise rewrites a leading "//" spelling of a network path to "\\" and
// every remaining forward slash to a backslash, but only for network paths.
func normalise(path string) string {
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, `\\`) {
		return strings.ReplaceAll(path, "/", `\`)
	}
	return path
}

// JoinHost joins path elements using the separator style of base: backslash
// when base contains one (drive or network paths), slash otherwise.
// Leading and trailing separators on elements are dropped.
func JoinHost(base string, elems ...string) string {
	sep := "/"
	if strings.Contains(base, `\`) {
		sep = `\`
	}

	parts := make([]string, 0, len(elems)+1)
	if base != "" {
		parts = append(parts, strings.TrimRight(base, `/\`))
	}
	for _, e := range elems {
		if e = strings.Trim(e, `/\`); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, sep)
}
