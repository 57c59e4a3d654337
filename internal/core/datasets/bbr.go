package datasets

import "github.com/JonMunkholm/bbrprep/internal/core"

// Keys of the registered BBR datasets.
const (
	BBRBuildings   = "bbr_buildings"
	BBRDemolitions = "bbr_demolitions"
)

func init() {
	registerBBRBuildings()
	registerBBRDemolitions()
}

func registerBBRBuildings() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         BBRBuildings,
			Group:       "BBR",
			Label:       "Buildings",
			Description: "All registered buildings; no area threshold.",
		},
		Definition: core.DefaultDefinition(),
		Defaults:   core.Options{AreaFilter: 0, Demolished: false},
	})
}

// Demolition extracts carry the demolition date in "Effect From" and are
// limited to buildings of at least 500 m².
func registerBBRDemolitions() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         BBRDemolitions,
			Group:       "BBR",
			Label:       "Demolitions",
			Description: "Demolished buildings with age at demolition; area of 500 m² or more.",
		},
		Definition: core.DefaultDefinition(),
		Defaults:   core.Options{AreaFilter: 500, Demolished: true},
	})
}
