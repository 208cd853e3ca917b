package sample

// NewAveragingConverter creates a converter that emits the moving average of
// the last windowSize Samples for every Sample received. This smooths sensor
// noise without changing the output rate.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize+1)
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}
				send(out, averageSamples(buffer))
			}
		}()

		return out
	}
}

// averageSamples averages a slice of Samples.
// Uses the most recent sample's timestamp.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumTemperature, sumHumidity float64
	for _, s := range samples {
		sumTemperature += s.Temperature
		sumHumidity += s.Humidity
	}

	n := float64(len(samples))
	return Sample{
		Timestamp:   samples[len(samples)-1].Timestamp,
		Temperature: sumTemperature / n,
		Humidity:    sumHumidity / n,
	}
}
