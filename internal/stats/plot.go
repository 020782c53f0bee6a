package stats

type PlotPoint struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// BuildAverageScorePlot averages one value per index across the given
// series, consuming each list head by head so shorter runs simply stop
// contributing. Index advances by step from startIndex, mirroring the
// metrics window stride.
func BuildAverageScorePlot(lists [][]float64, startIndex, step int) []PlotPoint {
	if step <= 0 {
		step = 1
	}
	if startIndex < 0 {
		startIndex = 0
	}
	points := make([]PlotPoint, 0, 128)
	index := startIndex
	current := clonePlotLists(lists)
	for {
		values := make([]float64, 0, len(current))
		next := make([][]float64, 0, len(current))
		for _, list := range current {
			if len(list) == 0 {
				continue
			}
			values = append(values, list[0])
			if len(list) > 1 {
				tail := append([]float64(nil), list[1:]...)
				next = append(next, tail)
			}
		}
		if len(values) == 0 {
			break
		}
		avg, _ := avgStd(values)
		points = append(points, PlotPoint{Index: index, Value: avg})
		index += step
		current = next
	}
	return points
}

func BuildMaxScorePlot(lists [][]float64, startIndex, step int) []PlotPoint {
	if step <= 0 {
		step = 1
	}
	if startIndex < 0 {
		startIndex = 0
	}
	points := make([]PlotPoint, 0, len(lists))
	index := startIndex
	for _, list := range lists {
		if len(list) == 0 {
			continue
		}
		points = append(points, PlotPoint{
			Index: index,
			Value: maxFloat(list),
		})
		index += step
	}
	return points
}

func clonePlotLists(lists [][]float64) [][]float64 {
	cloned := make([][]float64, 0, len(lists))
	for _, list := range lists {
		cloned = append(cloned, append([]float64(nil), list...))
	}
	return cloned
}
