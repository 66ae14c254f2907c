package synth

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DefaultVoice is used when no voice is configured.
const DefaultVoice = "Kore"

// Voice is a prebuilt voice.
type Voice struct {
	Name  string
	Style string
}

func (v Voice) String() string {
	return fmt.Sprintf("%s (%s)", v.Name, v.Style)
}

var catalogue = []Voice{
	{"Zephyr", "Bright"},
	{"Puck", "Upbeat"},
	{"Charon", "Informative"},
	{"Kore", "Firm"},
	{"Fenrir", "Excitable"},
	{"Leda", "Youthful"},
	{"Orus", "Firm"},
	{"Aoede", "Breezy"},
	{"Callirrhoe", "Easy-going"},
	{"Autonoe", "Bright"},
	{"Enceladus", "Breathy"},
	{"Iapetus", "Clear"},
	{"Umbriel", "Easy-going"},
	{"Algieba", "Smooth"},
	{"Despina", "Smooth"},
	{"Erinome", "Clear"},
	{"Algenib", "Gravelly"},
	{"Rasalgethi", "Informative"},
	{"Laomedeia", "Upbeat"},
	{"Achernar", "Soft"},
	{"Alnilam", "Firm"},
	{"Schedar", "Even"},
	{"Gacrux", "Mature"},
	{"Pulcherrima", "Forward"},
	{"Achird", "Friendly"},
	{"Zubenelgenubi", "Casual"},
	{"Vindemiatrix", "Gentle"},
	{"Sadachbia", "Lively"},
	{"Sadaltager", "Knowledgeable"},
	{"Sulafat", "Warm"},
}

// Voices returns the catalogue in a stable order.
func Voices() []Voice {
	return append([]Voice(nil), catalogue...)
}

// LookupVoice finds a voice by name, ignoring case.
func LookupVoice(name string) (Voice, error) {
	for _, v := range catalogue {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return v, nil
		}
	}
	return Voice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, name)
}

type voiceSource []Voice

func (s voiceSource) String(i int) string { return s[i].Name + " " + s[i].Style }
func (s voiceSource) Len() int            { return len(s) }

// SearchVoices fuzzy-matches query against voice names and styles, best
// match first. An empty query returns the whole catalogue.
func SearchVoices(query string) []Voice {
	query = strings.TrimSpace(query)
	if query == "" {
		return Voices()
	}
	matches := fuzzy.FindFrom(query, voiceSource(catalogue))
	out := make([]Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, catalogue[m.Index])
	}
	return out
}
