package domain

import "strings"

// Well-known role names.
const (
	RoleEditor  = "editor"
	RoleRender  = "render"
	RolePreview = "preview"
	RoleCustom  = "custom"
)

// Mode strings passed to the worker as its second argument.
const (
	ModeEditor  = "editormode"
	ModeRender  = "rendermode"
	ModePreview = "previewmode"
	ModeCustom  = "custom"
)

// Role identifies one worker connection. Name is used in logs and timeout
// reasons, Mode is what the worker is told to run as.
type Role struct {
	Name string
	Mode string
}

// IsCustom reports whether the role runs the worker with caller-supplied
// arguments instead of the socket token and mode.
func (r Role) IsCustom() bool {
	return r.Mode == ModeCustom
}

// DefaultRoles is the full editor/render/preview set.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleEditor, Mode: ModeEditor},
		{Name: RoleRender, Mode: ModeRender},
		{Name: RolePreview, Mode: ModePreview},
	}
}

// ParseRoles turns a comma separated list ("editor,render") into roles.
// Unknown names become custom-mode roles carrying that name.
func ParseRoles(list string) []Role {
	var roles []Role
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case RoleEditor:
			roles = append(roles, Role{Name: name, Mode: ModeEditor})
		case RoleRender:
			roles = append(roles, Role{Name: name, Mode: ModeRender})
		case RolePreview:
			roles = append(roles, Role{Name: name, Mode: ModePreview})
		default:
			roles = append(roles, Role{Name: name, Mode: ModeCustom})
		}
	}
	return roles
}

// MatchesRole reports whether a role selector such as the debug or
// output-forwarding setting applies to name. "all" matches every role.
func MatchesRole(selector, name string) bool {
	selector = strings.ToLower(strings.TrimSpace(selector))
	if selector == "" {
		return false
	}
	if selector == "all" {
		return true
	}
	for _, s := range strings.Split(selector, ",") {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}

// ExitStatus mirrors how a worker process terminated.
type ExitStatus int

const (
	// NormalExit means the process returned from main, whatever its code.
	NormalExit ExitStatus = iota
	// CrashExit means the process was killed by a signal, or declared dead.
	CrashExit
)

func (s ExitStatus) String() string {
	if s == CrashExit {
		return "crash"
	}
	return "normal"
}
