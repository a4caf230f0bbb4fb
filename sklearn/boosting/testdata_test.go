package boosting

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// linearData returns y = 3*x0 - 2*x1 + noise with x uniform in [0, 10).
func linearData(n int, noise float64, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0, x1, x2 := rng.Float64()*10, rng.Float64()*10, rng.Float64()
		X.SetRow(i, []float64{x0, x1, x2})
		y.Set(i, 0, 3*x0-2*x1+noise*rng.NormFloat64())
	}
	return X, y
}

// blobs returns well separated gaussian clusters labelled with labels.
func blobs(n int, labels []float64, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		c := i % len(labels)
		X.SetRow(i, []float64{
			float64(c)*5 + 0.5*rng.NormFloat64(),
			float64(c%2)*5 + 0.5*rng.NormFloat64(),
		})
		y.Set(i, 0, labels[c])
	}
	return X, y
}
