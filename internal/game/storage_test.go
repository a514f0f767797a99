package game

import (
	"testing"

	"github.com/everforgeworks/deadly-accel/internal/host/memhost"
)

func TestPlayerDataRoundTrip(t *testing.T) {
	in := PlayerData{IFrames: 2, ToxicityBuildup: 37.25, LowestToxicDecay: 0.5}
	blob, err := EncodePlayerData(in)
	if err != nil {
		t.Fatalf("EncodePlayerData: %v", err)
	}
	out, err := DecodePlayerData(blob)
	if err != nil {
		t.Fatalf("DecodePlayerData: %v", err)
	}
	if out.IFrames != in.IFrames || out.ToxicityBuildup != in.ToxicityBuildup || out.LowestToxicDecay != in.LowestToxicDecay {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestDecodePlayerDataClamps(t *testing.T) {
	out, err := DecodePlayerData("iframes: 9\ntoxicity_buildup: 250\nlowest_toxic_decay: -3\n")
	if err != nil {
		t.Fatalf("DecodePlayerData: %v", err)
	}
	if out.IFrames != IFrameMax || out.ToxicityBuildup != ToxicityCutoff || out.LowestToxicDecay != 0 {
		t.Fatalf("got %+v, want clamped values", out)
	}
}

func TestDecodePlayerDataRejectsGarbage(t *testing.T) {
	if _, err := DecodePlayerData("toxicity_buildup: [not, a, number]"); err == nil {
		t.Fatalf("expected an error for a malformed blob")
	}
}

func TestLoadPlayerDataMissing(t *testing.T) {
	ch := memhost.New().NewCharacter(zero)
	if _, found, err := loadPlayerData(ch); found || err != nil {
		t.Fatalf("loadPlayerData on empty storage = %v, %v", found, err)
	}
	ch.Store = nil
	if err := storePlayerData(ch, PlayerData{}); err == nil {
		t.Fatalf("storePlayerData without storage succeeded")
	}
}

func TestUnreadableStoredDataStartsFresh(t *testing.T) {
	f := newShip(t)
	f.char.Store.Set(StorageKey, "{{{")
	out := f.update(t)
	if out.State != StateEvaluable || out.Toxicity != 0 {
		t.Fatalf("got %+v, want a fresh evaluable player", out)
	}
}
