package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type SweepScoreRun struct {
	RunID    string  `json:"run_id"`
	WiringID string  `json:"wiring_id"`
	Seed     int64   `json:"seed"`
	Score    float64 `json:"score"`
	Hit      bool    `json:"hit"`
	Goal     float64 `json:"goal,omitempty"`
}

type SweepScoreStats struct {
	TotalRuns int             `json:"total_runs"`
	HitRuns   int             `json:"hit_runs"`
	HitRate   float64         `json:"hit_rate"`
	AvgScore  float64         `json:"avg_score"`
	StdScore  float64         `json:"std_score"`
	MinScore  float64         `json:"min_score"`
	MaxScore  float64         `json:"max_score"`
	ScoreGoal *float64        `json:"score_goal,omitempty"`
	Runs      []SweepScoreRun `json:"runs"`
}

type SweepWiringStats struct {
	WiringID      string  `json:"wiring_id"`
	Runs          int     `json:"runs"`
	AvgScore      float64 `json:"avg_score"`
	StdScore      float64 `json:"std_score"`
	MaxScore      float64 `json:"max_score"`
	MinScore      float64 `json:"min_score"`
	ChampionRunID string  `json:"champion_run_id"`
}

type SweepReport struct {
	SweepID      string             `json:"sweep_id"`
	ReportName   string             `json:"report_name"`
	GeneratedAt  string             `json:"generated_at_utc"`
	Experiment   SweepExperiment    `json:"experiment"`
	ByWiring     []SweepWiringStats `json:"by_wiring"`
	Scores       SweepScoreStats    `json:"scores"`
	ParetoRunIDs []string           `json:"pareto_run_ids,omitempty"`
}

func BuildSweepScoreStats(baseDir string, exp SweepExperiment, scoreGoal *float64) (SweepScoreStats, error) {
	result := SweepScoreStats{
		TotalRuns: len(exp.RunIDs),
		ScoreGoal: cloneFloat64Ptr(scoreGoal),
		Runs:      make([]SweepScoreRun, 0, len(exp.RunIDs)),
	}
	scores := make([]float64, 0, len(exp.RunIDs))
	for i, runID := range exp.RunIDs {
		rec, ok, err := ReadRunRecordArtifact(baseDir, runID)
		if err != nil {
			return SweepScoreStats{}, err
		}
		if !ok {
			return SweepScoreStats{}, fmt.Errorf("run record not found for run id: %s", runID)
		}

		run := SweepScoreRun{
			RunID:    runID,
			WiringID: rec.Config.Wiring.ID,
			Seed:     rec.Config.Seed,
			Score:    rec.Score,
		}
		if i < len(exp.Summaries) {
			run.WiringID = exp.Summaries[i].WiringID
			run.Seed = exp.Summaries[i].Seed
		}
		if scoreGoal != nil {
			run.Goal = *scoreGoal
			run.Hit = run.Score >= *scoreGoal
		} else {
			run.Hit = true
		}

		result.Runs = append(result.Runs, run)
		scores = append(scores, run.Score)
		if run.Hit {
			result.HitRuns++
		}
	}
	if result.TotalRuns > 0 {
		result.HitRate = float64(result.HitRuns) / float64(result.TotalRuns)
	}
	if len(scores) > 0 {
		result.AvgScore, result.StdScore = avgStd(scores)
		result.MinScore = minFloat(scores)
		result.MaxScore = maxFloat(scores)
	}
	return result, nil
}

func BuildSweepWiringStats(runs []SweepScoreRun) []SweepWiringStats {
	byWiring := make(map[string][]SweepScoreRun)
	for _, run := range runs {
		byWiring[run.WiringID] = append(byWiring[run.WiringID], run)
	}

	wiringIDs := make([]string, 0, len(byWiring))
	for wiringID := range byWiring {
		wiringIDs = append(wiringIDs, wiringID)
	}
	sort.Strings(wiringIDs)

	stats := make([]SweepWiringStats, 0, len(wiringIDs))
	for _, wiringID := range wiringIDs {
		group := byWiring[wiringID]
		scores := make([]float64, 0, len(group))
		champion := group[0]
		for _, run := range group {
			scores = append(scores, run.Score)
			if run.Score > champion.Score {
				champion = run
			}
		}
		avg, std := avgStd(scores)
		stats = append(stats, SweepWiringStats{
			WiringID:      wiringID,
			Runs:          len(group),
			AvgScore:      avg,
			StdScore:      std,
			MaxScore:      maxFloat(scores),
			MinScore:      minFloat(scores),
			ChampionRunID: champion.RunID,
		})
	}
	return stats
}

func WriteSweepReport(baseDir string, report SweepReport) (string, error) {
	if report.SweepID == "" {
		return "", fmt.Errorf("report sweep id is required")
	}
	name := report.ReportName
	if name == "" {
		name = "report"
	}
	reportDir := filepath.Join(baseDir, sweepsDir, report.SweepID)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_Sweep.json"), report.Experiment); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_Wirings.json"), report.ByWiring); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_Scores.json"), report.Scores); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(reportDir, name+"_Report.json"), report); err != nil {
		return "", err
	}
	return reportDir, nil
}

func cloneFloat64Ptr(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	value := *v
	return &value
}
