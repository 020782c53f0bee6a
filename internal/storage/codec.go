package storage

import (
	"encoding/json"
	"errors"

	"proteus/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp returns the version header every record saved by this build
// carries.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRunRecord(rec model.RunRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeRunRecord(data []byte) (model.RunRecord, error) {
	var rec model.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return rec, nil
}

func EncodeWiring(rec model.WiringRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeWiring(data []byte) (model.WiringRecord, error) {
	var rec model.WiringRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.WiringRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.WiringRecord{}, err
	}
	return rec, nil
}

func EncodeMetrics(windows []model.MetricsWindowRecord) ([]byte, error) {
	return json.Marshal(windows)
}

func DecodeMetrics(data []byte) ([]model.MetricsWindowRecord, error) {
	var windows []model.MetricsWindowRecord
	if err := json.Unmarshal(data, &windows); err != nil {
		return nil, err
	}
	return windows, nil
}

func EncodeDistribution(dist model.ExotypeDistribution) ([]byte, error) {
	return json.Marshal(dist)
}

func DecodeDistribution(data []byte) (model.ExotypeDistribution, error) {
	var dist model.ExotypeDistribution
	if err := json.Unmarshal(data, &dist); err != nil {
		return model.ExotypeDistribution{}, err
	}
	if err := checkVersion(dist.VersionedRecord); err != nil {
		return model.ExotypeDistribution{}, err
	}
	return dist, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
