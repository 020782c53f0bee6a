package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type WiringRecord struct {
	VersionedRecord
	ID                string  `json:"id"`
	HexagramID        int     `json:"hexagram_id"`
	HexagramName      string  `json:"hexagram_name"`
	MixMode           string  `json:"mix_mode"`
	MatchThreshold    float64 `json:"match_threshold"`
	UpdateProbability float64 `json:"update_probability"`
}

type ExotypeSpecRecord struct {
	TableVersion string   `json:"table_version"`
	WindowWidth  int      `json:"window_width"`
	CadenceTicks int      `json:"cadence_ticks"`
	WiringIDs    []string `json:"wiring_ids"`
}

// RunConfig is the serializable echo of everything a simulation consumed.
// Replays rebuild the live configuration from this record alone.
type RunConfig struct {
	AlphabetSymbols  string             `json:"alphabet_symbols"`
	GenotypeLength   int                `json:"genotype_length"`
	InitialGenotype  string             `json:"initial_genotype,omitempty"`
	InitialPhenotype string             `json:"initial_phenotype,omitempty"`
	Generations      int                `json:"generations"`
	Seed             int64              `json:"seed"`
	Kernel           string             `json:"kernel"`
	Wiring           WiringRecord       `json:"wiring"`
	Exotype          *ExotypeSpecRecord `json:"exotype,omitempty"`
}

type RunRecord struct {
	VersionedRecord
	RunID            string         `json:"run_id"`
	CreatedAtUTC     string         `json:"created_at_utc"`
	Config           RunConfig      `json:"config"`
	GenotypeHistory  []string       `json:"genotype_history"`
	PhenotypeHistory []string       `json:"phenotype_history"`
	HexagramByTick   []int          `json:"hexagram_by_tick,omitempty"`
	FinalHash        string         `json:"final_hash"`
	Score            float64        `json:"score"`
	Regimes          map[string]int `json:"regimes,omitempty"`
}

type MetricsWindowRecord struct {
	WStart      int     `json:"w_start"`
	WEnd        int     `json:"w_end"`
	Pressure    float64 `json:"pressure"`
	Selectivity float64 `json:"selectivity"`
	Structure   float64 `json:"structure"`
	Activity    float64 `json:"activity"`
	Regime      string  `json:"regime"`
}

type ExotypeDistribution struct {
	VersionedRecord
	RunID        string      `json:"run_id"`
	TableVersion string      `json:"table_version"`
	WindowWidth  int         `json:"window_width"`
	Samples      int         `json:"samples"`
	Counts       map[int]int `json:"counts"`
}
