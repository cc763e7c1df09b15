package hierarchy

// Layer is an ordered authority band derived from an agent's level.
// Higher layers may suppress lower layers; same-layer agents never
// suppress each other. The zero value is LayerSurvival.
type Layer int

const (
	// LayerSurvival is the band for agents at level 0 or below. Survival
	// agents exist but hold no authority and may not act on peers.
	LayerSurvival Layer = iota

	// LayerWorker is the band for levels 1-9.
	LayerWorker

	// LayerTactical is the band for levels 10-19.
	LayerTactical

	// LayerStrategic is the band for levels 20-39.
	LayerStrategic

	// LayerExecutive is the band for level 40 and above.
	LayerExecutive
)

// String returns the lowercase name of the layer.
func (l Layer) String() string {
	switch l {
	case LayerSurvival:
		return "survival"
	case LayerWorker:
		return "worker"
	case LayerTactical:
		return "tactical"
	case LayerStrategic:
		return "strategic"
	case LayerExecutive:
		return "executive"
	default:
		return "unknown"
	}
}

// Above reports whether l strictly outranks other.
func (l Layer) Above(other Layer) bool {
	return l > other
}

// LayerBounds holds the inclusive lower level of each band above Survival.
// Levels below Worker map to Survival.
type LayerBounds struct {
	Worker    int `mapstructure:"worker"`
	Tactical  int `mapstructure:"tactical"`
	Strategic int `mapstructure:"strategic"`
	Executive int `mapstructure:"executive"`
}

// DefaultLayerBounds returns the standard band boundaries: Worker 1-9,
// Tactical 10-19, Strategic 20-39, Executive 40+.
func DefaultLayerBounds() LayerBounds {
	return LayerBounds{Worker: 1, Tactical: 10, Strategic: 20, Executive: 40}
}

// LayerFor maps an agent level to its Layer under these bounds.
func (b LayerBounds) LayerFor(level int) Layer {
	switch {
	case level >= b.Executive:
		return LayerExecutive
	case level >= b.Strategic:
		return LayerStrategic
	case level >= b.Tactical:
		return LayerTactical
	case level >= b.Worker:
		return LayerWorker
	default:
		return LayerSurvival
	}
}
