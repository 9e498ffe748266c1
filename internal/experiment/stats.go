package experiment

import "gonum.org/v1/gonum/stat"

// Summarize reduces trial samples to their mean and standard error. The
// standard error is the population standard deviation over √n; an empty
// batch summarises to zeros.
func Summarize(samples []float64) (mean, stdErr float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	mean, std := stat.PopMeanStdDev(samples, nil)
	return mean, stat.StdErr(std, float64(len(samples)))
}
