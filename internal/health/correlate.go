package health

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

// minOverlapDays is the smallest number of overlapping daily samples
// correlate_metrics will compute a coefficient from. Below this, the
// result is reported as insufficient_data rather than a possibly
// misleading correlation.
const minOverlapDays = 5

func (d *Dispatcher) correlateMetrics(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	metricA := argString(args, "metric_a")
	metricB := argString(args, "metric_b")
	if metricA == "" || metricB == "" {
		return errorResult("invalid_arguments", "metric_a and metric_b are required")
	}
	days := argInt(args, "days", 90)
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	seriesA, err := d.dailySeries(ctx, userID, metricA, since, now)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}
	seriesB, err := d.dailySeries(ctx, userID, metricB, since, now)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}

	var a, b []float64
	for day, va := range seriesA {
		if vb, ok := seriesB[day]; ok {
			a = append(a, va)
			b = append(b, vb)
		}
	}

	if len(a) < minOverlapDays {
		return toJSON(map[string]any{
			"metric_a":          metricA,
			"metric_b":          metricB,
			"overlapping_days":  len(a),
			"insufficient_data": true,
		})
	}

	corr := pearson(a, b)
	return toJSON(map[string]any{
		"metric_a":         metricA,
		"metric_b":         metricB,
		"period_days":      days,
		"overlapping_days": len(a),
		"correlation":      round3(corr),
		"interpretation":   interpretCorrelation(corr),
	})
}

// dailySeries resolves metric to a (day -> value) series. A "symptom:"
// prefix selects a symptom type's severity; a "lab:" prefix selects a
// lab test's value; anything else is looked up as a wearable series
// code. Multiple same-day readings are averaged. Days are aligned on
// the UTC calendar day, since no per-user timezone is tracked.
func (d *Dispatcher) dailySeries(ctx context.Context, userID, metric string, since, until time.Time) (map[string]float64, error) {
	switch {
	case strings.HasPrefix(metric, "symptom:"):
		symptomType := strings.TrimPrefix(metric, "symptom:")
		rows, err := repo.ListSymptomEntriesInRange(ctx, d.db, userID, symptomType, since, until)
		if err != nil {
			return nil, err
		}
		sums, counts := map[string]float64{}, map[string]int{}
		for _, r := range rows {
			day := r.RecordedAt.UTC().Format("2006-01-02")
			sums[day] += float64(r.Severity)
			counts[day]++
		}
		return averageByDay(sums, counts), nil

	case strings.HasPrefix(metric, "lab:"):
		testName := strings.TrimPrefix(metric, "lab:")
		rows, err := repo.ListLabResultsByTest(ctx, d.db, userID, testName, &since)
		if err != nil {
			return nil, err
		}
		sums, counts := map[string]float64{}, map[string]int{}
		for _, r := range rows {
			if r.RecordedAt.UTC().After(until) {
				continue
			}
			day := r.RecordedAt.UTC().Format("2006-01-02")
			sums[day] += r.Value
			counts[day]++
		}
		return averageByDay(sums, counts), nil

	default:
		rows, err := repo.ListWearableSamples(ctx, d.db, userID, metric, since, until)
		if err != nil {
			return nil, err
		}
		sums, counts := map[string]float64{}, map[string]int{}
		for _, r := range rows {
			day := r.RecordedAt.UTC().Format("2006-01-02")
			sums[day] += r.Value
			counts[day]++
		}
		return averageByDay(sums, counts), nil
	}
}

func averageByDay(sums map[string]float64, counts map[string]int) map[string]float64 {
	out := make(map[string]float64, len(sums))
	for day, sum := range sums {
		out[day] = sum / float64(counts[day])
	}
	return out
}

// pearson computes the Pearson correlation coefficient between two equal-
// length samples using population statistics.
func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	cov /= n
	varA /= n
	varB /= n

	denom := math.Sqrt(varA) * math.Sqrt(varB)
	if denom == 0 {
		return 0
	}
	return cov / denom
}

func interpretCorrelation(corr float64) string {
	abs := math.Abs(corr)
	sign := "positive"
	if corr < 0 {
		sign = "negative"
	}
	switch {
	case abs >= 0.7:
		return "strong " + sign + " correlation"
	case abs >= 0.4:
		return "moderate " + sign + " correlation"
	case abs >= 0.2:
		return "weak " + sign + " correlation"
	default:
		return "no significant correlation"
	}
}
