// Package runtime builds the command strings and descriptor rewrite
// templates for each supported container runtime flavor. All builders are
// pure; actual process execution lives in the driver package.
package runtime

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the container technology a container was created with.
type Kind string

const (
	Toolbox Kind = "toolbox"
	Podman  Kind = "podman"
	Docker  Kind = "docker"
	Unknown Kind = ""
)

// ParseKind maps a config string to a Kind. Anything unrecognized is Unknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toolbox":
		return Toolbox
	case "podman":
		return Podman
	case "docker":
		return Docker
	}
	return Unknown
}

// The Exec=/Name= line patterns are shared by every kind that carries
// rewrite templates. Capture group 2 holds the original field value and is
// substituted into the replacement templates via ${2}.
var (
	execLineRe = regexp.MustCompile(`(Exec=\s?)(.*)`)
	nameLineRe = regexp.MustCompile(`(Name=\s?)(.*)`)
)

// Supported reports whether the kind carries a full template set. Only
// toolbox containers are fully templated today; podman and docker are
// recognized but their launch templates are incomplete.
func (k Kind) Supported() bool {
	return k == Toolbox
}

// StartCommand returns the shell command that ensures the container is
// running. Empty means "do not attempt" for this kind.
func (k Kind) StartCommand(name string) string {
	switch k {
	case Toolbox:
		// toolbox run starts the container on demand
		return fmt.Sprintf("toolbox run -c %s echo 'Started'", name)
	}
	return ""
}

// ExecCommand returns the shell command that runs inner inside the container.
func (k Kind) ExecCommand(name, inner string) string {
	switch k {
	case Toolbox:
		return fmt.Sprintf("toolbox run -c %s %s", name, inner)
	}
	return ""
}

// CopyOutCommand returns the shell command that recursively copies src (a
// directory inside the container) to dst on the host.
func (k Kind) CopyOutCommand(name, src, dst string) string {
	switch k {
	case Toolbox:
		// toolbox containers are podman containers underneath
		return fmt.Sprintf("podman container cp %s:%s/. %s/", name, src, dst)
	}
	return ""
}

// ExecPattern returns the compiled pattern matching Exec= lines, or nil when
// the kind has no exec rewrite.
func (k Kind) ExecPattern() *regexp.Regexp {
	switch k {
	case Toolbox, Podman, Docker:
		return execLineRe
	}
	return nil
}

// ExecReplacement returns the replacement template for Exec= lines. The
// original command is substituted for ${2}. Empty means the rewrite is a
// no-op for this kind.
func (k Kind) ExecReplacement(name string) string {
	switch k {
	case Toolbox:
		return fmt.Sprintf("Exec=toolbox run -c %s ${2}", name)
	case Podman:
		// Not always functional: the container may need user setup first.
		return fmt.Sprintf("Exec=sh -c 'podman container start %s && podman container exec %s ${2}'", name, name)
	}
	return ""
}

// NamePattern returns the compiled pattern matching Name= lines, or nil when
// the kind has no name rewrite.
func (k Kind) NamePattern() *regexp.Regexp {
	switch k {
	case Toolbox, Podman, Docker:
		return nameLineRe
	}
	return nil
}

// NameReplacement returns the replacement template for Name= lines,
// typically suffixing the container name for disambiguation in the shell.
func (k Kind) NameReplacement(name string) string {
	switch k {
	case Toolbox:
		return fmt.Sprintf("Name=${2} (%s)", name)
	}
	return ""
}
