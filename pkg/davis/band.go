package davis

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBand = errors.New("unknown frequency band")

// Band is a regulatory band. Each band has a fixed hop table; channel indexes
// used throughout this module are positions in that table, in hop order.
type Band string

const (
	BandUS Band = "US"
	BandAU Band = "AU"
	BandEU Band = "EU"
	BandNZ Band = "NZ"
)

// Frequencies in hop order. US from the rtl-sdr captures of 2019-03-26,
// permuted by the transmitter's hop pattern; EU from 2019-03-24.
var (
	usFrequencies = hopOrder([]int{
		902419338, 902921088, 903422839, 903924589, 904426340, 904928090,
		905429841, 905931591, 906433342, 906935092, 907436843, 907938593,
		908440344, 908942094, 909443845, 909945595, 910447346, 910949096,
		911450847, 911952597, 912454348, 912956099, 913457849, 913959599,
		914461350, 914963100, 915464850, 915966601, 916468351, 916970102,
		917471852, 917973603, 918475353, 918977104, 919478854, 919980605,
		920482355, 920984106, 921485856, 921987607, 922489357, 922991108,
		923492858, 923994609, 924496359, 924998110, 925499860, 926001611,
		926503361, 927005112, 927506862,
	}, []int{
		0, 19, 41, 25, 8, 47, 32, 13, 36, 22, 3, 29, 44, 16, 5, 27, 38, 10,
		49, 21, 2, 30, 42, 14, 48, 7, 24, 34, 45, 1, 17, 39, 26, 9, 31, 50,
		37, 12, 20, 33, 4, 43, 28, 15, 35, 6, 40, 11, 23, 46, 18,
	})

	euFrequencies = hopOrder([]int{
		868077250, 868197250, 868317250, 868437250, 868557250,
	}, []int{
		0, 2, 4, 1, 3,
	})
)

func hopOrder(freqs, pattern []int) []int {
	ret := make([]int, len(pattern))
	for idx, ch := range pattern {
		ret[idx] = freqs[ch]
	}
	return ret
}

// ParseBand accepts a case-insensitive band name.
func ParseBand(s string) (Band, error) {
	b := Band(strings.ToUpper(strings.TrimSpace(s)))
	if b.Channels() == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownBand, s)
	}
	return b, nil
}

// Channels returns the hop table length, or 0 for an unknown band.
func (b Band) Channels() int {
	switch b {
	case BandUS, BandAU, BandNZ:
		return 51
	case BandEU:
		return len(euFrequencies)
	default:
		return 0
	}
}

// Next returns the hop that follows channel.
func (b Band) Next(channel int) int {
	n := b.Channels()
	if n == 0 {
		return 0
	}
	return (channel + 1) % n
}

// Frequency returns the centre frequency in Hz of a hop. Bands without a
// known table report false.
func (b Band) Frequency(channel int) (int, bool) {
	var table []int
	switch b {
	case BandUS:
		table = usFrequencies
	case BandEU:
		table = euFrequencies
	}
	if channel < 0 || channel >= len(table) {
		return 0, false
	}
	return table[channel], true
}
