package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

const logLossEpsilon = 1e-15

// Accuracy は正解率
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// BinaryLogLoss は 0/1 ラベルの対数損失。proba は陽性クラスの確率の列。
func BinaryLogLoss(yTrue, proba mat.Matrix) (float64, error) {
	t, p, err := pair("BinaryLogLoss", yTrue, proba)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, y := range t {
		if y != 0 && y != 1 {
			return 0, errors.NewValueError("BinaryLogLoss", "labels must be 0 or 1")
		}
		q := clip(p[i])
		sum -= y*math.Log(q) + (1-y)*math.Log(1-q)
	}
	return sum / float64(len(t)), nil
}

// MultiLogLoss は多クラスの対数損失。proba の列は classes の順。
func MultiLogLoss(yTrue, proba mat.Matrix, classes []float64) (float64, error) {
	t, err := values("MultiLogLoss", yTrue)
	if err != nil {
		return 0, err
	}
	rows, cols := proba.Dims()
	if rows != len(t) {
		return 0, errors.NewDimensionError("MultiLogLoss", len(t), rows, 0)
	}
	if cols != len(classes) {
		return 0, errors.NewDimensionError("MultiLogLoss", len(classes), cols, 1)
	}

	index := make(map[float64]int, len(classes))
	for j, c := range classes {
		index[c] = j
	}
	var sum float64
	for i, y := range t {
		j, ok := index[y]
		if !ok {
			return 0, errors.NewValueError("MultiLogLoss", "label not present in classes")
		}
		sum -= math.Log(clip(proba.At(i, j)))
	}
	return sum / float64(len(t)), nil
}

// F1Score は陽性ラベル 1 に対する2値 F1
// 陽性が予測にも正解にも無いときは UndefinedMetricWarning を出して 0 を返す。
func F1Score(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("F1Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if len(labels(t, p)) > 2 {
		return 0, errors.NewValueError("F1Score", "target is multiclass but average is binary")
	}
	return f1(confusion(t, p, 1), "F1Score"), nil
}

// F1Weighted はクラスごとの F1 をサポート数で重み付けした平均
func F1Weighted(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair("F1Weighted", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var weighted float64
	for _, label := range labels(t, p) {
		c := confusion(t, p, label)
		if support := c.tp + c.fn; support > 0 {
			weighted += float64(support) * f1(c, "F1Weighted")
		}
	}
	return weighted / float64(len(t)), nil
}

type counts struct{ tp, fp, fn int }

func confusion(t, p []float64, positive float64) counts {
	var c counts
	for i := range t {
		isTrue, isPred := t[i] == positive, p[i] == positive
		switch {
		case isTrue && isPred:
			c.tp++
		case isPred:
			c.fp++
		case isTrue:
			c.fn++
		}
	}
	return c
}

func f1(c counts, metric string) float64 {
	denom := 2*c.tp + c.fp + c.fn
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, "no true nor predicted samples", 0))
		return 0
	}
	return 2 * float64(c.tp) / float64(denom)
}

func labels(columns ...[]float64) []float64 {
	seen := make(map[float64]struct{})
	for _, col := range columns {
		for _, v := range col {
			seen[v] = struct{}{}
		}
	}
	out := make([]float64, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Float64s(out)
	return out
}

func clip(p float64) float64 {
	return math.Max(logLossEpsilon, math.Min(1-logLossEpsilon, p))
}
