package dataset

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// balancedWeights computes one weight per class, inversely proportional to
// class frequency:
//
//	w_c = total / (numClasses * count_c)
//
// For a balanced dataset every weight is 1.0; rarer classes get larger
// weights. Classes with no samples would produce a non-finite weight and are
// pinned to 0 instead. Returns nil when there are no classes.
func balancedWeights(classNames []string, labels []string) *tensor.Dense {
	if len(classNames) == 0 {
		return nil
	}

	counts := make(map[string]int, len(classNames))
	for _, label := range labels {
		counts[label]++
	}

	total := float32(len(labels))
	numClasses := float32(len(classNames))
	weights := make([]float32, len(classNames))
	for i, name := range classNames {
		w := total / (numClasses * float32(counts[name]))
		if math32.IsInf(w, 0) || math32.IsNaN(w) {
			w = 0
		}
		weights[i] = w
	}

	return tensor.New(tensor.WithShape(len(classNames)), tensor.WithBacking(weights))
}
