package domain

// ReadingFilter narrows a history query by value. Time bounds are part
// of the range query itself; value filters are applied to the result.
type ReadingFilter struct {
	MinTemperature *float64
	MaxTemperature *float64
	MinHumidity    *float64
	MaxHumidity    *float64
}

func (f ReadingFilter) Matches(r Reading) bool {
	if f.MinTemperature != nil && r.Temperature < *f.MinTemperature {
		return false
	}
	if f.MaxTemperature != nil && r.Temperature > *f.MaxTemperature {
		return false
	}
	if f.MinHumidity != nil && r.Humidity < *f.MinHumidity {
		return false
	}
	if f.MaxHumidity != nil && r.Humidity > *f.MaxHumidity {
		return false
	}
	return true
}

// RangeStats summarizes a set of readings.
type RangeStats struct {
	Count       int     `json:"count"`
	AvgTemp     float64 `json:"avg_temp"`
	MinTemp     float64 `json:"min_temp"`
	MaxTemp     float64 `json:"max_temp"`
	AvgHumidity float64 `json:"avg_humidity"`
	MinHumidity float64 `json:"min_humidity"`
	MaxHumidity float64 `json:"max_humidity"`
}

// ComputeStats aggregates readings into range statistics. Returns a
// zero-count result for an empty slice.
func ComputeStats(readings []Reading) RangeStats {
	if len(readings) == 0 {
		return RangeStats{}
	}

	s := RangeStats{
		Count:       len(readings),
		MinTemp:     readings[0].Temperature,
		MaxTemp:     readings[0].Temperature,
		MinHumidity: readings[0].Humidity,
		MaxHumidity: readings[0].Humidity,
	}

	var tempSum, humSum float64
	for _, r := range readings {
		tempSum += r.Temperature
		humSum += r.Humidity
		if r.Temperature < s.MinTemp {
			s.MinTemp = r.Temperature
		}
		if r.Temperature > s.MaxTemp {
			s.MaxTemp = r.Temperature
		}
		if r.Humidity < s.MinHumidity {
			s.MinHumidity = r.Humidity
		}
		if r.Humidity > s.MaxHumidity {
			s.MaxHumidity = r.Humidity
		}
	}
	s.AvgTemp = tempSum / float64(s.Count)
	s.AvgHumidity = humSum / float64(s.Count)
	return s
}
