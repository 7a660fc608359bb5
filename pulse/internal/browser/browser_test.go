package browser

import (
	"strings"
	"testing"
)

func TestApplyResourceBlocking_NothingToBlock(t *testing.T) {
	// A nil page is never touched when no known type is requested.
	if r := applyResourceBlocking(nil, nil); r != nil {
		t.Error("nil names: want nil router")
	}
	if r := applyResourceBlocking(nil, []string{"scripts", "xhr", "document"}); r != nil {
		t.Error("unblockable types: want nil router")
	}
}

func TestBlockableTypes(t *testing.T) {
	for _, name := range []string{"images", "fonts", "media"} {
		if _, ok := blockableTypes[name]; !ok {
			t.Errorf("%s: not blockable", name)
		}
	}
	if _, ok := blockableTypes["script"]; ok {
		t.Error("scripts must stay loadable")
	}
}

func TestManager_Defaults(t *testing.T) {
	m := NewManager(Config{})
	if m.cfg.Mode != ModeHeadless {
		t.Errorf("mode: got %q", m.cfg.Mode)
	}
	if m.Browser() != nil {
		t.Error("browser before Start: want nil")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Start(t.Context()); err == nil {
		t.Error("Start after Close: want error")
	}
}

func TestEmbeddedAssets(t *testing.T) {
	if !strings.Contains(observeJS, bindingName) {
		t.Error("observer script does not call the binding")
	}
	if !strings.Contains(badgeCSS, ".feedpulse-badge") {
		t.Error("badge stylesheet missing .feedpulse-badge")
	}
}
