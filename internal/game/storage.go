/*
Package game
File: storage.go
Description:
    PlayerData snapshots stored in the character's mod storage blob under a
    fixed key. The snapshot is YAML; the jetpack reference is not part of it.
*/

package game

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/deadly-accel/internal/host"
)

// StorageKey identifies this mod's entry in a character's storage.
const StorageKey = "15AB8152-C66D-4064-9B5D-0F3DAE29F5F4"

// EncodePlayerData serializes the persistent part of d.
func EncodePlayerData(d PlayerData) (string, error) {
	out, err := yaml.Marshal(&d)
	if err != nil {
		return "", fmt.Errorf("encode player data: %w", err)
	}
	return string(out), nil
}

// DecodePlayerData parses a snapshot and clamps it back into range.
func DecodePlayerData(blob string) (PlayerData, error) {
	var d PlayerData
	if err := yaml.Unmarshal([]byte(blob), &d); err != nil {
		return PlayerData{}, fmt.Errorf("decode player data: %w", err)
	}
	if math.IsNaN(d.ToxicityBuildup) {
		d.ToxicityBuildup = 0
	}
	d.ToxicityBuildup = math.Min(math.Max(d.ToxicityBuildup, 0), ToxicityCutoff)
	if math.IsNaN(d.LowestToxicDecay) || d.LowestToxicDecay < 0 {
		d.LowestToxicDecay = 0
	}
	d.IFrames = min(max(d.IFrames, 0), IFrameMax)
	return d, nil
}

// loadPlayerData reads the snapshot from a character, if present.
func loadPlayerData(ch host.Character) (PlayerData, bool, error) {
	if ch == nil {
		return PlayerData{}, false, nil
	}
	st := ch.Storage()
	if st == nil {
		return PlayerData{}, false, nil
	}
	blob, ok := st.Get(StorageKey)
	if !ok || blob == "" {
		return PlayerData{}, false, nil
	}
	d, err := DecodePlayerData(blob)
	if err != nil {
		return PlayerData{}, false, err
	}
	return d, true, nil
}

// storePlayerData writes the snapshot into a character's storage.
func storePlayerData(ch host.Character, d PlayerData) error {
	st := ch.Storage()
	if st == nil {
		return fmt.Errorf("character %d has no storage", ch.EntityID())
	}
	blob, err := EncodePlayerData(d)
	if err != nil {
		return err
	}
	st.Set(StorageKey, blob)
	return nil
}
