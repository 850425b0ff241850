package render

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CurveCSVHeader is the header row written by WriteCurveCSV.
var CurveCSVHeader = []string{"label", "bin", "lower", "upper", "center", "total", "successes", "rate"}

// WriteCurveCSV writes one row per (curve, bin). Empty bins have rate NaN.
func WriteCurveCSV(w io.Writer, series []CurveSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CurveCSVHeader); err != nil {
		return err
	}
	for _, s := range series {
		if s.Curve == nil {
			continue
		}
		for i, pt := range s.Curve.Points {
			cw.Write([]string{
				s.Label,
				strconv.Itoa(i),
				formatFloat(pt.Lower),
				formatFloat(pt.Upper),
				formatFloat(pt.Center),
				strconv.Itoa(pt.Total),
				strconv.Itoa(pt.Successes),
				formatFloat(pt.Rate),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
