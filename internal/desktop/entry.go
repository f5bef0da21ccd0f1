// Package desktop parses and rewrites freedesktop application descriptors
// (.desktop files) so container-native launch definitions become launchable
// from the host shell.
package desktop

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

const mainSection = "Desktop Entry"

// Entry is a decoded desktop file. Entries are immutable once decoded.
type Entry struct {
	// ID is the application identifier, taken from the file stem
	// (e.g. "org.gnome.Calculator" for org.gnome.Calculator.desktop).
	ID        string
	Name      string
	Exec      string
	Icon      string
	NoDisplay bool
}

// Decode parses text as a desktop entry. path supplies the application ID.
// A file without a [Desktop Entry] section is not a valid descriptor.
func Decode(path, text string) (*Entry, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse desktop entry %s: %w", path, err)
	}
	sec, err := f.GetSection(mainSection)
	if err != nil {
		return nil, fmt.Errorf("desktop entry %s: missing [Desktop Entry] section", path)
	}
	base := filepath.Base(path)
	return &Entry{
		ID:        strings.TrimSuffix(base, filepath.Ext(base)),
		Name:      sec.Key("Name").String(),
		Exec:      sec.Key("Exec").String(),
		Icon:      sec.Key("Icon").String(),
		NoDisplay: sec.Key("NoDisplay").MustBool(false),
	}, nil
}
