// Package identity holds the per-device client id and the small set of
// preferences a client remembers between sessions.
package identity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	keyClientID = "gk_client_id"
	keyLastRoom = "gk_last_room"
)

func playerKey(code string) string { return fmt.Sprintf("gk_%s_me", code) }
func pinKey(code string) string    { return fmt.Sprintf("gk_%s_pin", code) }

// Provider supplies the identity of the local client.
type Provider interface {
	ClientID() string
}

// StaticProvider is a fixed client id, mostly useful in tests.
type StaticProvider string

func (p StaticProvider) ClientID() string { return string(p) }

// Device is the identity and preference view over a DeviceStore.
type Device struct {
	store DeviceStore

	once     sync.Once
	clientID string
}

func NewDevice(store DeviceStore) *Device {
	return &Device{store: store}
}

// ClientID returns the persisted client id, generating one on first use.
// A failure to persist still yields a usable id for this process.
func (d *Device) ClientID() string {
	d.once.Do(func() {
		var id string
		ok, err := d.store.Load(keyClientID, &id)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load client id, generating a new one")
		}
		if ok && err == nil && id != "" {
			d.clientID = id
			return
		}

		d.clientID = uuid.NewString()
		if err := d.store.Save(keyClientID, d.clientID); err != nil {
			log.Warn().Err(err).Msg("Failed to persist client id")
		}
	})
	return d.clientID
}

// LastRoom returns the most recently entered room code.
func (d *Device) LastRoom() (string, error) {
	return d.loadString(keyLastRoom)
}

func (d *Device) SetLastRoom(code string) error {
	return d.store.Save(keyLastRoom, code)
}

// SelectedPlayer returns the player id chosen in a room, or "".
func (d *Device) SelectedPlayer(code string) (string, error) {
	return d.loadString(playerKey(code))
}

func (d *Device) SetSelectedPlayer(code, playerID string) error {
	return d.store.Save(playerKey(code), playerID)
}

func (d *Device) ClearSelectedPlayer(code string) error {
	return d.store.Delete(playerKey(code))
}

// ScorerPin returns the cached scorer pin for a room, or "".
func (d *Device) ScorerPin(code string) (string, error) {
	return d.loadString(pinKey(code))
}

func (d *Device) SetScorerPin(code, pin string) error {
	return d.store.Save(pinKey(code), pin)
}

func (d *Device) loadString(key string) (string, error) {
	var v string
	if _, err := d.store.Load(key, &v); err != nil {
		return "", err
	}
	return v, nil
}
