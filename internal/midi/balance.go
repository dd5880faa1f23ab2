// Package midi implements left/right-hand velocity balancing over standard
// MIDI files. Classification and scaling are deterministic and touch
// nothing but note-on velocities.
package midi

import (
	"fmt"
	"math"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// splitPitch is the hand split point: MIDI note 60, middle C.
const splitPitch = 60

// Hand is the classification of one MIDI channel.
type Hand int

const (
	HandNone Hand = iota // no notes, or an even split
	HandLeft
	HandRight
)

func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "LH"
	case HandRight:
		return "RH"
	default:
		return "none"
	}
}

// BalanceInfo reports how each channel was classified and scaled.
type BalanceInfo struct {
	Hands map[uint8]Hand
}

// Channels returns the channels classified as the given hand, sorted.
func (b BalanceInfo) Channels(h Hand) []uint8 {
	var chs []uint8
	for ch, hand := range b.Hands {
		if hand == h {
			chs = append(chs, ch)
		}
	}
	sort.Slice(chs, func(i, j int) bool { return chs[i] < chs[j] })
	return chs
}

type pitchStats struct {
	low, high int
}

// channelStats counts sounding note-ons per channel, split at middle C.
func channelStats(s *smf.SMF) map[uint8]pitchStats {
	stats := make(map[uint8]pitchStats)
	for _, track := range s.Tracks {
		for _, ev := range track {
			var ch, key, vel uint8
			if ev.Message.GetNoteStart(&ch, &key, &vel) {
				st := stats[ch]
				if key < splitPitch {
					st.low++
				} else {
					st.high++
				}
				stats[ch] = st
			}
		}
	}
	return stats
}

// ClassifyHands classifies each channel by pitch distribution: predominantly
// below middle C is left-hand, predominantly above is right-hand, an even
// split or no notes is neither.
func ClassifyHands(s *smf.SMF) BalanceInfo {
	info := BalanceInfo{Hands: make(map[uint8]Hand)}
	for ch, st := range channelStats(s) {
		switch {
		case st.low > st.high:
			info.Hands[ch] = HandLeft
		case st.high > st.low:
			info.Hands[ch] = HandRight
		default:
			info.Hands[ch] = HandNone
		}
	}
	return info
}

// scaleVelocity scales and clamps a sounding velocity. The result stays a
// sounding note: the floor is 1, not 0, so a note-on never turns into a
// note-off.
func scaleVelocity(v uint8, scale float64) uint8 {
	scaled := int(math.Round(float64(v) * scale))
	if scaled < 1 {
		scaled = 1
	}
	if scaled > 127 {
		scaled = 127
	}
	return uint8(scaled)
}

// Balance scales note-on velocities in place: left-hand channels by lhScale,
// right-hand channels by rhScale. Unclassified channels and every other
// message kind are left untouched. Identity scales are a no-op.
func Balance(s *smf.SMF, lhScale, rhScale float64) BalanceInfo {
	info := ClassifyHands(s)

	for ti, track := range s.Tracks {
		for ei, ev := range track {
			var ch, key, vel uint8
			if !ev.Message.GetNoteStart(&ch, &key, &vel) {
				continue
			}

			var scale float64
			switch info.Hands[ch] {
			case HandLeft:
				scale = lhScale
			case HandRight:
				scale = rhScale
			default:
				continue
			}

			v := scaleVelocity(vel, scale)
			if v != vel {
				s.Tracks[ti][ei].Message = smf.Message(gomidi.NoteOn(ch, key, v))
			}
		}
	}
	return info
}

// BalanceFile reads inPath, balances velocities, and writes the adjusted
// copy to outPath. The input file is never modified.
func BalanceFile(inPath, outPath string, lhScale, rhScale float64) (BalanceInfo, error) {
	s, err := smf.ReadFile(inPath)
	if err != nil {
		return BalanceInfo{}, fmt.Errorf("read midi %s: %w", inPath, err)
	}

	info := Balance(s, lhScale, rhScale)

	if err := s.WriteFile(outPath); err != nil {
		return BalanceInfo{}, fmt.Errorf("write midi %s: %w", outPath, err)
	}
	return info, nil
}
