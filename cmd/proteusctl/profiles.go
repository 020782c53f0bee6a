package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	proteusapi "proteus/pkg/proteus"
)

// runProfile is the on-disk run configuration. The file extension selects
// the parser: .yaml/.yml parse as YAML, everything else as JSON.
type runProfile struct {
	RunID            string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Alphabet         string   `json:"alphabet,omitempty" yaml:"alphabet,omitempty"`
	GenotypeLength   int      `json:"genotype_length,omitempty" yaml:"genotype_length,omitempty"`
	InitialGenotype  string   `json:"initial_genotype,omitempty" yaml:"initial_genotype,omitempty"`
	InitialPhenotype string   `json:"initial_phenotype,omitempty" yaml:"initial_phenotype,omitempty"`
	Generations      int      `json:"generations,omitempty" yaml:"generations,omitempty"`
	Seed             int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Kernel           string   `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	Wiring           string   `json:"wiring,omitempty" yaml:"wiring,omitempty"`
	ExotypeWirings   []string `json:"exotype_wirings,omitempty" yaml:"exotype_wirings,omitempty"`
	ExotypeWindow    int      `json:"exotype_window,omitempty" yaml:"exotype_window,omitempty"`
	ExotypeCadence   int      `json:"exotype_cadence,omitempty" yaml:"exotype_cadence,omitempty"`
	MetricsWidth     int      `json:"metrics_width,omitempty" yaml:"metrics_width,omitempty"`
	MetricsStride    int      `json:"metrics_stride,omitempty" yaml:"metrics_stride,omitempty"`
	FamilySamples    int      `json:"family_samples,omitempty" yaml:"family_samples,omitempty"`
}

func loadRunProfile(path string) (proteusapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return proteusapi.RunRequest{}, fmt.Errorf("read run profile: %w", err)
	}
	var profile runProfile
	if isYAMLProfile(path) {
		err = yaml.Unmarshal(data, &profile)
	} else {
		err = json.Unmarshal(data, &profile)
	}
	if err != nil {
		return proteusapi.RunRequest{}, fmt.Errorf("parse run profile %s: %w", path, err)
	}
	return proteusapi.RunRequest{
		RunID:            profile.RunID,
		Alphabet:         profile.Alphabet,
		GenotypeLength:   profile.GenotypeLength,
		InitialGenotype:  profile.InitialGenotype,
		InitialPhenotype: profile.InitialPhenotype,
		Generations:      profile.Generations,
		Seed:             profile.Seed,
		Kernel:           profile.Kernel,
		WiringID:         profile.Wiring,
		ExotypeWiringIDs: profile.ExotypeWirings,
		ExotypeWindow:    profile.ExotypeWindow,
		ExotypeCadence:   profile.ExotypeCadence,
		MetricsWidth:     profile.MetricsWidth,
		MetricsStride:    profile.MetricsStride,
		FamilySamples:    profile.FamilySamples,
	}, nil
}

func isYAMLProfile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// overlayRunFlags copies into dst only the fields whose command-line flag
// was explicitly set, so flags win over profile values without clobbering
// the rest of the profile with flag defaults.
func overlayRunFlags(dst *proteusapi.RunRequest, flags proteusapi.RunRequest, set map[string]bool) {
	if set["run-id"] {
		dst.RunID = flags.RunID
	}
	if set["alphabet"] {
		dst.Alphabet = flags.Alphabet
	}
	if set["length"] {
		dst.GenotypeLength = flags.GenotypeLength
	}
	if set["genotype"] {
		dst.InitialGenotype = flags.InitialGenotype
	}
	if set["phenotype"] {
		dst.InitialPhenotype = flags.InitialPhenotype
	}
	if set["gens"] {
		dst.Generations = flags.Generations
	}
	if set["seed"] {
		dst.Seed = flags.Seed
	}
	if set["kernel"] {
		dst.Kernel = flags.Kernel
	}
	if set["wiring"] {
		dst.WiringID = flags.WiringID
	}
	if set["exo-wirings"] {
		dst.ExotypeWiringIDs = flags.ExotypeWiringIDs
	}
	if set["exo-window"] {
		dst.ExotypeWindow = flags.ExotypeWindow
	}
	if set["exo-cadence"] {
		dst.ExotypeCadence = flags.ExotypeCadence
	}
	if set["width"] {
		dst.MetricsWidth = flags.MetricsWidth
	}
	if set["stride"] {
		dst.MetricsStride = flags.MetricsStride
	}
	if set["samples"] {
		dst.FamilySamples = flags.FamilySamples
	}
}
