package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// namedKeys maps configuration key names to hotkey codes. Letters and
// digits are listed explicitly because the underlying virtual keycodes are
// not contiguous on every platform.
var namedKeys = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"escape": hotkey.KeyEscape,
	"return": hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
	"f5":     hotkey.KeyF5,
	"f6":     hotkey.KeyF6,
	"f7":     hotkey.KeyF7,
	"f8":     hotkey.KeyF8,
	"f9":     hotkey.KeyF9,
	"f10":    hotkey.KeyF10,
	"f11":    hotkey.KeyF11,
	"f12":    hotkey.KeyF12,
	"f13":    hotkey.KeyF13,
	"f14":    hotkey.KeyF14,
	"f15":    hotkey.KeyF15,
	"f16":    hotkey.KeyF16,
	"f17":    hotkey.KeyF17,
	"f18":    hotkey.KeyF18,
	"f19":    hotkey.KeyF19,
	"f20":    hotkey.KeyF20,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
}

// keyNames is the reverse of namedKeys with display casing
var keyNames = func() map[hotkey.Key]string {
	names := make(map[hotkey.Key]string, len(namedKeys))
	for name, key := range namedKeys {
		names[key] = strings.ToUpper(name[:1]) + name[1:]
	}
	return names
}()

// ParseKey converts a configuration key name ("F8", "space", "a", "3") into
// a hotkey code
func ParseKey(name string) (hotkey.Key, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return 0, fmt.Errorf("empty key name")
	}

	key, ok := namedKeys[lower]
	if !ok {
		return 0, fmt.Errorf("unknown key name %q", name)
	}
	return key, nil
}

// Format returns a human-readable representation of the binding,
// e.g. "Ctrl+Shift+F8"
func Format(modifiers []hotkey.Modifier, key hotkey.Key) string {
	var parts []string

	for _, mod := range modifiers {
		switch mod {
		case hotkey.ModCtrl:
			parts = append(parts, "Ctrl")
		case hotkey.ModShift:
			parts = append(parts, "Shift")
		case hotkey.ModOption:
			parts = append(parts, "Alt")
		case hotkey.ModCmd:
			parts = append(parts, "Cmd")
		}
	}

	if name, ok := keyNames[key]; ok {
		parts = append(parts, name)
	} else {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "+")
}
