package hotkey

import "golang.design/x/hotkey"

// ConflictInfo describes a known system shortcut a binding collides with
type ConflictInfo struct {
	Name        string
	Description string
	Modifiers   []hotkey.Modifier
	Key         hotkey.Key
}

// knownConflicts lists macOS shortcuts users commonly have bound
var knownConflicts = []ConflictInfo{
	{
		Name:        "Spotlight",
		Description: "macOS Spotlight search",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd},
		Key:         hotkey.KeySpace,
	},
	{
		Name:        "Input Source Switch",
		Description: "Keyboard input source switch",
		Modifiers:   []hotkey.Modifier{hotkey.ModCtrl},
		Key:         hotkey.KeySpace,
	},
	{
		Name:        "Force Quit",
		Description: "macOS Force Quit dialog",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd, hotkey.ModOption},
		Key:         hotkey.KeyEscape,
	},
	{
		Name:        "Mission Control",
		Description: "macOS Mission Control",
		Modifiers:   nil,
		Key:         hotkey.KeyF3,
	},
	{
		Name:        "Dictation",
		Description: "macOS built-in dictation trigger",
		Modifiers:   nil,
		Key:         hotkey.KeyF5,
	},
}

// CheckConflicts returns the known system shortcuts the binding collides
// with, empty when it is safe
func CheckConflicts(modifiers []hotkey.Modifier, key hotkey.Key) []ConflictInfo {
	var conflicts []ConflictInfo
	for _, known := range knownConflicts {
		if bindingsEqual(modifiers, key, known.Modifiers, known.Key) {
			conflicts = append(conflicts, known)
		}
	}
	return conflicts
}

// bindingsEqual compares two bindings ignoring modifier order
func bindingsEqual(mods1 []hotkey.Modifier, key1 hotkey.Key, mods2 []hotkey.Modifier, key2 hotkey.Key) bool {
	if key1 != key2 || len(mods1) != len(mods2) {
		return false
	}

	set := make(map[hotkey.Modifier]bool, len(mods2))
	for _, mod := range mods2 {
		set[mod] = true
	}
	for _, mod := range mods1 {
		if !set[mod] {
			return false
		}
	}
	return true
}
