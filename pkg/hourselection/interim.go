package hourselection

import "github.com/sirupsen/logrus"

const (
	// interimPivotHour is where the day boundary window starts today and ends tomorrow.
	interimPivotHour = 14
	// interimMinTomorrow is the number of tomorrow prices needed to smooth the day boundary.
	interimMinTomorrow = 23
)

// classifyWindow runs normalize, rank and classify over one price window.
func classifyWindow(prices []float64, rangeStart, dayLength int, opts Options) (HourObject, error) {
	normalized := Normalize(prices)
	ranked := Rank(RankInput{
		Prices:          prices,
		Normalized:      normalized,
		Type:            opts.CautionHourType,
		RangeStart:      rangeStart,
		DayLength:       dayLength,
		AdjustedAverage: opts.AdjustedAverage,
		BlockNocturnal:  opts.BlockNocturnal,
	})
	obj, err := Classify(ranked, opts.CautionHourType, opts.CurrentPeak, opts.MinimumLoadKW)
	obj.OffsetDict = Offsets(normalized, rangeStart)
	return obj, err
}

// InterimDayUpdate reclassifies the window from the pivot hour today to the pivot hour tomorrow
// and writes the result over the evening of today and the morning of tomorrow. The returned
// bool is false, and today and tomorrow are returned as given, when tomorrow's prices are
// incomplete or the window could not be classified.
func InterimDayUpdate(today, tomorrow HourObject, pricesToday, pricesTomorrow []float64, opts Options) (HourObject, HourObject, bool) {
	if len(pricesTomorrow) < interimMinTomorrow || len(pricesToday) <= interimPivotHour {
		return today, tomorrow, false
	}
	pivotTomorrow := interimPivotHour
	if pivotTomorrow > len(pricesTomorrow) {
		pivotTomorrow = len(pricesTomorrow)
	}

	window := make([]float64, 0, len(pricesToday)-interimPivotHour+pivotTomorrow)
	window = append(window, pricesToday[interimPivotHour:]...)
	window = append(window, pricesTomorrow[:pivotTomorrow]...)

	dayLength := len(pricesToday)
	interim, err := classifyWindow(window, interimPivotHour, dayLength, opts)
	if err != nil {
		logrus.WithField("error", err).Warn("hourselection: interim day update failed")
		return today, tomorrow, false
	}

	newToday := today.Clone()
	for hour := interimPivotHour; hour < dayLength; hour++ {
		newToday = takeHour(newToday, interim, hour, hour)
		if v, ok := interim.OffsetDict[hour]; ok {
			newToday.OffsetDict[hour] = v
		}
	}

	newTomorrow := tomorrow.Clone()
	for hour := 0; hour < pivotTomorrow; hour++ {
		windowHour := dayLength + hour
		newTomorrow = takeHour(newTomorrow, interim, windowHour, hour)
		// tomorrow's offsets are counted back from the end of the window
		if v, ok := interim.OffsetDict[interimPivotHour+len(window)-pivotTomorrow+hour]; ok {
			newTomorrow.OffsetDict[hour] = v
		}
	}
	return newToday, newTomorrow, true
}

// takeHour copies the classification of windowHour in interim into hour of dst.
func takeHour(dst, interim HourObject, windowHour, hour int) HourObject {
	dst.NonHours = removeHour(dst.NonHours, hour)
	dst.CautionHours = removeHour(dst.CautionHours, hour)
	delete(dst.DynamicCautionHours, hour)
	switch {
	case interim.IsCaution(windowHour):
		dst.CautionHours = insertHour(dst.CautionHours, hour)
		if v, ok := interim.DynamicCautionHours[windowHour]; ok {
			dst.DynamicCautionHours[hour] = v
		}
	case interim.IsNon(windowHour):
		dst.NonHours = insertHour(dst.NonHours, hour)
	}
	return dst
}
