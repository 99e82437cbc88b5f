package player

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	propertiesIface  = "org.freedesktop.DBus.Properties"

	signalPropertiesChanged = propertiesIface + ".PropertiesChanged"
	signalSeeked            = mprisPlayerIface + ".Seeked"

	refreshTimeout = 2 * time.Second
)

// MPRIS reads the session bus. With an empty service name it follows
// whichever player is currently playing.
type MPRIS struct {
	bus      *dbus.Conn
	service  string
	tracker  *Tracker
	signals  chan *dbus.Signal
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMPRIS(bus *dbus.Conn, service string, tracker *Tracker) (*MPRIS, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if tracker == nil {
		return nil, errors.New("nil tracker")
	}
	if service != "" && !strings.HasPrefix(service, mprisPrefix) {
		service = mprisPrefix + service
	}

	return &MPRIS{
		bus:     bus,
		service: service,
		tracker: tracker,
		stop:    make(chan struct{}),
	}, nil
}

func (m *MPRIS) Service() string {
	if m.service == "" {
		return "auto"
	}
	return m.service
}

// Start subscribes to player signals and feeds them to the tracker.
func (m *MPRIS) Start() error {
	senderRule := ""
	if m.service != "" {
		senderRule = fmt.Sprintf("sender='%s',", m.service)
	}

	matchProperties := fmt.Sprintf(
		"type='signal',%sinterface='%s',member='PropertiesChanged',path='%s'",
		senderRule, propertiesIface, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',%sinterface='%s',member='Seeked',path='%s'",
		senderRule, mprisPlayerIface, mprisPath,
	)

	for _, rule := range []string{matchProperties, matchSeeked} {
		if err := m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return fmt.Errorf("failed to add match %q: %w", rule, err)
		}
	}

	m.signals = make(chan *dbus.Signal, 10)
	m.bus.Signal(m.signals)

	go m.signalLoop()

	log.Infof("%s listening for %s", logging.MPRIS, m.Service())
	return nil
}

func (m *MPRIS) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.signals != nil {
			m.bus.RemoveSignal(m.signals)
		}
	})
}

func (m *MPRIS) signalLoop() {
	for {
		select {
		case sig, ok := <-m.signals:
			if !ok {
				return
			}
			m.handleSignal(sig)
		case <-m.stop:
			return
		}
	}
}

func (m *MPRIS) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case signalPropertiesChanged:
		if len(sig.Body) < 2 {
			return
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != mprisPlayerIface {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		_, metadata := changed["Metadata"]
		_, status := changed["PlaybackStatus"]
		if metadata || status {
			m.refresh()
		}
	case signalSeeked:
		if len(sig.Body) < 1 {
			return
		}
		micros, ok := sig.Body[0].(int64)
		if !ok || micros < 0 {
			return
		}
		m.tracker.Seek(micros / 1000)
	}
}

// refresh re-reads the whole session because change signals only carry
// the properties that moved.
func (m *MPRIS) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	snap, ok, err := m.QueryActiveSession(ctx)
	if err != nil {
		log.Debugf("%s refresh failed: %v", logging.MPRIS, err)
		return
	}
	if ok {
		m.tracker.Notify(snap)
	}
}

// QueryActiveSession reads the current track, play state and position.
func (m *MPRIS) QueryActiveSession(ctx context.Context) (track.Snapshot, bool, error) {
	if m.service != "" {
		props, err := m.playerProperties(ctx, m.service)
		if err != nil {
			return track.Snapshot{}, false, err
		}
		snap := snapshotFromProperties(props)
		return snap, snap.IsValid(), nil
	}

	services, err := listServices(ctx, m.bus)
	if err != nil {
		return track.Snapshot{}, false, err
	}

	var fallback *track.Snapshot
	for _, service := range services {
		props, err := m.playerProperties(ctx, service)
		if err != nil {
			continue
		}
		snap := snapshotFromProperties(props)
		if !snap.IsValid() {
			continue
		}
		if snap.Playing {
			return snap, true, nil
		}
		if fallback == nil {
			fallback = &snap
		}
	}

	if fallback != nil {
		return *fallback, true, nil
	}
	return track.Snapshot{}, false, nil
}

func (m *MPRIS) playerProperties(ctx context.Context, service string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	err := m.bus.Object(service, mprisPath).
		CallWithContext(ctx, propertiesIface+".GetAll", 0, mprisPlayerIface).
		Store(&props)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", service, err)
	}
	return props, nil
}

type PlayerInfo struct {
	Service  string
	Identity string
}

// ListPlayers returns every MPRIS player on the bus.
func ListPlayers(ctx context.Context, bus *dbus.Conn) ([]PlayerInfo, error) {
	services, err := listServices(ctx, bus)
	if err != nil {
		return nil, err
	}

	players := make([]PlayerInfo, 0, len(services))
	for _, service := range services {
		info := PlayerInfo{Service: service}
		variant, err := bus.Object(service, mprisPath).GetProperty(mprisRootIface + ".Identity")
		if err == nil {
			info.Identity, _ = variant.Value().(string)
		}
		players = append(players, info)
	}
	return players, nil
}

func listServices(ctx context.Context, bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var services []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			services = append(services, name)
		}
	}
	sort.Strings(services)
	return services, nil
}

func snapshotFromProperties(props map[string]dbus.Variant) track.Snapshot {
	var metadata map[string]dbus.Variant
	if v, ok := props["Metadata"]; ok {
		metadata, _ = v.Value().(map[string]dbus.Variant)
	}

	snap := track.Snapshot{
		Title:          extractString(metadata, "xesam:title"),
		Artist:         extractArtist(metadata, "xesam:artist"),
		Album:          extractString(metadata, "xesam:album"),
		DurationMillis: extractMillis(metadata, "mpris:length"),
		Playing:        extractString(props, "PlaybackStatus") == "Playing",
		PositionMillis: extractMillis(props, "Position"),
	}
	return snap
}

func extractString(values map[string]dbus.Variant, key string) string {
	variant, exists := values[key]
	if !exists {
		return ""
	}

	text, ok := variant.Value().(string)
	if !ok {
		return ""
	}
	return text
}

func extractArtist(values map[string]dbus.Variant, key string) string {
	variant, exists := values[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		return strings.Join(typed, ", ")
	case string:
		return typed
	default:
		return ""
	}
}

// extractMillis converts an MPRIS microsecond value.
func extractMillis(values map[string]dbus.Variant, key string) int64 {
	variant, exists := values[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed / 1000
	case uint64:
		return int64(typed / 1000)
	case int32:
		if typed <= 0 {
			return 0
		}
		return int64(typed) / 1000
	default:
		return 0
	}
}
