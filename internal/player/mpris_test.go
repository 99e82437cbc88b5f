package player

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestSnapshotFromProperties(t *testing.T) {
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Playing"),
		"Position":       dbus.MakeVariant(int64(61_500_000)),
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("River"),
			"xesam:artist": dbus.MakeVariant([]string{"Joni Mitchell"}),
			"xesam:album":  dbus.MakeVariant("Blue"),
			"mpris:length": dbus.MakeVariant(uint64(240_000_000)),
		}),
	}

	snap := snapshotFromProperties(props)

	if snap.Title != "River" || snap.Artist != "Joni Mitchell" || snap.Album != "Blue" {
		t.Errorf("unexpected identity %+v", snap)
	}
	if snap.DurationMillis != 240000 {
		t.Errorf("expected duration 240000, got %d", snap.DurationMillis)
	}
	if snap.PositionMillis != 61500 {
		t.Errorf("expected position 61500, got %d", snap.PositionMillis)
	}
	if !snap.Playing {
		t.Error("expected playing")
	}
}

func TestSnapshotFromPropertiesMissingMetadata(t *testing.T) {
	snap := snapshotFromProperties(map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Paused"),
	})

	if snap.IsValid() {
		t.Error("snapshot without metadata should be invalid")
	}
	if snap.Playing {
		t.Error("paused status should not be playing")
	}
}

func TestExtractArtist(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"single string", "Joni", "Joni"},
		{"list", []string{"Joni", "James"}, "Joni, James"},
		{"empty list", []string{}, ""},
		{"wrong type", int32(4), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]dbus.Variant{"xesam:artist": dbus.MakeVariant(tt.value)}
			if got := extractArtist(values, "xesam:artist"); got != tt.want {
				t.Errorf("extractArtist() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMillis(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"int64", int64(2_000_000), 2000},
		{"uint64", uint64(3_500_000), 3500},
		{"negative", int64(-5), 0},
		{"string", "10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]dbus.Variant{"v": dbus.MakeVariant(tt.value)}
			if got := extractMillis(values, "v"); got != tt.want {
				t.Errorf("extractMillis() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := extractMillis(nil, "v"); got != 0 {
		t.Errorf("missing key should be 0, got %d", got)
	}
}

func TestNewMPRISValidation(t *testing.T) {
	if _, err := NewMPRIS(nil, "spotify", NewTracker()); err == nil {
		t.Error("expected error for nil bus")
	}
}
