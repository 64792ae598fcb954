package davis

import (
	"fmt"
	"strings"
)

// StationType is the kind of transmitter a station is. It is carried through
// to decoded records and never interpreted by the receiver.
type StationType byte

const (
	StationISS        StationType = 0x0
	StationTempOnly   StationType = 0x1
	StationHumOnly    StationType = 0x2
	StationTempHum    StationType = 0x3
	StationAnemometer StationType = 0x4
	StationRain       StationType = 0x5
	StationLeaf       StationType = 0x6
	StationSoil       StationType = 0x7
	StationSoilLeaf   StationType = 0x8
	StationSensorLink StationType = 0x9
	StationOff        StationType = 0xA
	// StationVue is a pseudo type; the Vue ISS also reports type 0.
	StationVue StationType = 0x10
)

var stationTypeNames = map[StationType]string{
	StationISS:        "iss",
	StationTempOnly:   "temp",
	StationHumOnly:    "hum",
	StationTempHum:    "temp_hum",
	StationAnemometer: "anemometer",
	StationRain:       "rain",
	StationLeaf:       "leaf",
	StationSoil:       "soil",
	StationSoilLeaf:   "soil_leaf",
	StationSensorLink: "sensorlink",
	StationOff:        "off",
	StationVue:        "vue",
}

func (s StationType) String() string {
	if name, ok := stationTypeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02X)", byte(s))
}

// ParseStationType maps a name as printed by String back to its type.
func ParseStationType(name string) (StationType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StationISS, nil
	}
	for st, n := range stationTypeNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown station type %q", name)
}

// UnmarshalYAML lets station types be written by name in config files.
func (s *StationType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	st, err := ParseStationType(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// PacketType is the upper nibble of a frame's first byte.
type PacketType byte

const (
	PacketVCap     PacketType = 0x2
	PacketUV       PacketType = 0x4
	PacketRainSecs PacketType = 0x5
	PacketSolar    PacketType = 0x6
	PacketVSolar   PacketType = 0x7
	PacketTemp     PacketType = 0x8
	PacketWindGust PacketType = 0x9
	PacketHumidity PacketType = 0xA
	PacketRain     PacketType = 0xE
	PacketSoilLeaf PacketType = 0xF
)

func (p PacketType) String() string {
	switch p {
	case PacketVCap:
		return "Supercap Voltage"
	case PacketUV:
		return "UV Index"
	case PacketRainSecs:
		return "Rain Rate"
	case PacketSolar:
		return "Solar Radiation"
	case PacketVSolar:
		return "Solar Voltage"
	case PacketTemp:
		return "Temperature"
	case PacketWindGust:
		return "Wind Gust"
	case PacketHumidity:
		return "Humidity"
	case PacketRain:
		return "Rain"
	case PacketSoilLeaf:
		return "Soil/Leaf"
	default:
		return fmt.Sprintf("Unknown(0x%0X)", byte(p))
	}
}
