/*
Package api
File: registration.go
Description:
    The registration hook is the only extension point other mods use.
    A mod sends a serialized juice definition to the "RegisterJuice" hook;
    the payload is a msgpack array whose element order is the wire
    contract:

        [subtypeId, safePointIncrease, consumptionRate, toxicityBase,
         toxicityCoefficient, toxicityDecay, toxicityPerMitigated, ranking]

    The first six positions are the legacy layout and never move. The
    last two were appended; payloads without them still decode, and
    toxicityPerMitigated is then derived as toxicityBase * toxicityCoefficient.
*/

package api

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/everforgeworks/deadly-accel/internal/game"
	"github.com/everforgeworks/deadly-accel/internal/logging"
)

// ModAPIMessageID is the message channel content mods listen on for the
// hook table.
const ModAPIMessageID int64 = 2422178213

// HookRegisterJuice is the hook name for juice registration.
const HookRegisterJuice = "RegisterJuice"

var ErrMalformedPayload = errors.New("malformed registration payload")

// JuiceDefinitionMessage is the wire form of a juice definition.
type JuiceDefinitionMessage struct {
	_msgpack struct{} `msgpack:",as_array"`

	SubtypeID            string
	SafePointIncrease    float32
	ConsumptionRate      float32
	ToxicityBase         float32
	ToxicityCoefficient  float32
	ToxicityDecay        float32
	ToxicityPerMitigated float32
	Ranking              int32
}

// legacyFields is the length of the legacy layout.
const legacyFields = 6

// DecodeMsgpack accepts the legacy six-field array as well as the current
// layout. Unknown trailing elements are skipped.
func (m *JuiceDefinitionMessage) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < legacyFields {
		return fmt.Errorf("array has %d elements, want at least %d", n, legacyFields)
	}
	if m.SubtypeID, err = dec.DecodeString(); err != nil {
		return err
	}
	floats := []*float32{
		&m.SafePointIncrease, &m.ConsumptionRate, &m.ToxicityBase,
		&m.ToxicityCoefficient, &m.ToxicityDecay, &m.ToxicityPerMitigated,
	}
	i := 1
	for _, dst := range floats {
		if i >= n {
			return nil
		}
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		*dst = float32(f)
		i++
	}
	if i < n {
		rank, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		m.Ranking = int32(rank)
		i++
	}
	for ; i < n; i++ {
		if err := dec.Skip(); err != nil {
			return err
		}
	}
	return nil
}

// Definition converts the message into a catalog entry.
func (m JuiceDefinitionMessage) Definition() game.JuiceDefinition {
	perMitigated := float64(m.ToxicityPerMitigated)
	if perMitigated == 0 {
		perMitigated = float64(m.ToxicityBase) * float64(m.ToxicityCoefficient)
	}
	return game.JuiceDefinition{
		SubtypeID:            m.SubtypeID,
		SafePointIncrease:    float64(m.SafePointIncrease),
		ConsumptionRate:      float64(m.ConsumptionRate),
		ToxicityPerMitigated: perMitigated,
		ToxicityDecay:        float64(m.ToxicityDecay),
		Ranking:              int(m.Ranking),
	}
}

// MessageFor builds the wire form of def.
func MessageFor(def game.JuiceDefinition) JuiceDefinitionMessage {
	return JuiceDefinitionMessage{
		SubtypeID:            def.SubtypeID,
		SafePointIncrease:    float32(def.SafePointIncrease),
		ConsumptionRate:      float32(def.ConsumptionRate),
		ToxicityPerMitigated: float32(def.ToxicityPerMitigated),
		ToxicityDecay:        float32(def.ToxicityDecay),
		Ranking:              int32(def.Ranking),
	}
}

// EncodeJuiceDefinition serializes def for the hook.
func EncodeJuiceDefinition(def game.JuiceDefinition) ([]byte, error) {
	msg := MessageFor(def)
	return msgpack.Marshal(&msg)
}

// DecodeJuiceDefinition parses and validates a hook payload.
func DecodeJuiceDefinition(payload []byte) (game.JuiceDefinition, error) {
	var msg JuiceDefinitionMessage
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return game.JuiceDefinition{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	def := msg.Definition()
	if err := game.ValidateDefinition(def); err != nil {
		return game.JuiceDefinition{}, err
	}
	return def, nil
}

// Registrar accepts juice definitions.
type Registrar interface {
	AddJuiceDefinition(def game.JuiceDefinition) error
}

// Hook is one entry of the table handed to other mods.
type Hook func(payload any) bool

// Hooks is the table sent on ModAPIMessageID.
type Hooks map[string]Hook

// NewHooks builds the hook table around reg.
func NewHooks(reg Registrar, log logging.Channels) Hooks {
	return Hooks{
		HookRegisterJuice: func(payload any) bool {
			return RegisterJuice(reg, log, payload) == nil
		},
	}
}

// RegisterJuice decodes payload and adds it to reg. Failures are logged
// and leave earlier registrations untouched.
func RegisterJuice(reg Registrar, log logging.Channels, payload any) error {
	if reg == nil {
		log.Game.Error("API: juice definition arrived before the session was initialised")
		return errors.New("registrar not initialised")
	}
	msg, ok := payload.([]byte)
	if !ok {
		log.Game.Error("API: failed to register juice definition, payload was not bytes", "type", fmt.Sprintf("%T", payload))
		return fmt.Errorf("%w: payload is %T", ErrMalformedPayload, payload)
	}
	def, err := DecodeJuiceDefinition(msg)
	if err != nil {
		log.Game.Error("API: failed to decode juice definition", "err", err)
		log.UI.Error("Failed to add a juice definition")
		return err
	}
	if err := reg.AddJuiceDefinition(def); err != nil {
		log.Game.Error("API: juice definition rejected", "subtype", def.SubtypeID, "err", err)
		return err
	}
	log.Game.Info("API: added juice definition", "subtype", def.SubtypeID,
		"consumption_rate", def.ConsumptionRate, "ranking", def.Ranking)
	return nil
}
