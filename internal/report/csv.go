package report

import (
	"encoding/csv"
	"io"
)

var csvHeader = []string{
	"Date", "Food Item", "Meal Type", "Calories", "Blood Pressure",
	"Felt Sick", "Bowel Score (1-7)", "Time Recorded", "Combination",
}

// WriteCSV writes the report rows, unencrypted, with a header line.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rep.Rows {
		record := []string{
			r.Date, r.Food, r.MealType, r.Calories, r.BloodPressure,
			r.FeltSick, r.BowelScore, r.Timestamp, r.Verdict,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
