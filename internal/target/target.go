// Package target defines the applications whose running time is tracked.
package target

import "github.com/ddobrev25/coding-time-tracker/internal/domain"

// Built-in application identifiers.
const (
	IDVS2022 = "vs2022"
	IDVSCode = "vscode"
)

// VS2022 is Visual Studio 2022.
func VS2022() domain.Target {
	return domain.Target{ID: IDVS2022, Name: "Visual Studio 2022", ProcessName: "devenv"}
}

// VSCode is Visual Studio Code.
func VSCode() domain.Target {
	return domain.Target{ID: IDVSCode, Name: "Visual Studio Code", ProcessName: "code"}
}

// Defaults returns the built-in targets watched when nothing is configured.
func Defaults() []domain.Target {
	return []domain.Target{VS2022(), VSCode()}
}

// Builtin looks up a built-in target by ID.
func Builtin(id string) (domain.Target, bool) {
	for _, t := range Defaults() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Target{}, false
}
