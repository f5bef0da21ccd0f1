package desktop

import "github.com/deskhand/deskhand/internal/runtime"

// Rewrite transforms container-native descriptor text into host-launchable
// text for the given runtime kind and container name. Every Exec= line has
// its value wrapped in the kind's exec-launch template and every Name= line
// gets the container suffix. Kinds with an empty template for either field
// pass the corresponding lines through unchanged; that degradation is
// deliberate, not an error.
//
// Rewrite is meant to run once per harvested file. Applying it again to its
// own output wraps the Exec value a second time, so repeated application is
// out of contract.
func Rewrite(text string, kind runtime.Kind, containerName string) string {
	if re := kind.ExecPattern(); re != nil {
		if tmpl := kind.ExecReplacement(containerName); tmpl != "" {
			text = re.ReplaceAllString(text, tmpl)
		}
	}
	if re := kind.NamePattern(); re != nil {
		if tmpl := kind.NameReplacement(containerName); tmpl != "" {
			text = re.ReplaceAllString(text, tmpl)
		}
	}
	return text
}
