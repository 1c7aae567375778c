package bot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const idPrefix = "bot-"

var names = []string{
	"Dave", "Deckard", "Roy", "Pris", "Leon", "Rachael", "Kirsh", "Anna",
	"R2-D2", "HAL-9000", "Mathilda", "C-3PO", "Ash 120-A/2", "Bishop", "Chappie",
	"M3GAN", "Gort", "Dalek", "Bender", "Ava", "Data", "T-800", "T-1000", "Wall-E",
	"Mother", "Marvin", "Astro Boy", "K-2SO", "Daneel", "Hadaly", "Iron Giant",
	"Dot Matrix", "KITT", "TARS", "ED-209", "Baymax", "Mazinger Z", "Sonny",
	"GLaDOS", "Megatron", "Optimus Prime", "Maria", "SAL-9000", "Twiki", "Mimus",
	"The Machine", "Tin Man", "Atari ST", "Amiga", "ZX Spectrum", "Commodore 64",
	"PC", "Macintosh", "VIC-20",
}

// NewID returns a synthetic player id that can never collide with a session id.
func NewID() string { return idPrefix + uuid.NewString() }

func IsID(id string) bool { return strings.HasPrefix(id, idPrefix) }

// PickName draws a pool name not already used in the room.
func PickName(taken []string) string {
	available := slices.DeleteFunc(slices.Clone(names), func(n string) bool {
		return slices.ContainsFunc(taken, func(t string) bool { return strings.EqualFold(t, n) })
	})
	if len(available) == 0 {
		return fmt.Sprintf("Bot-%d", pickIndex(1000))
	}
	return available[pickIndex(len(available))]
}
