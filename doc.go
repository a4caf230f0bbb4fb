// Package conformboost tunes gradient-boosted models and builds prediction
// intervals for them.
//
// The pipeline has four stages, each exposed as a subcommand of
// cmd/conformboost and configured through the environment:
//
//   - tune: randomized hyperparameter search for xgboost, lightgbm or
//     catboost (pipeline/tuning), persisted to models/params.pkl
//   - train: fits the model artifact models/{MODEL}.pkl (pipeline/training)
//   - intervals: inductive conformal intervals around the trained model, or a
//     pair of catboost quantile regressors (pipeline/intervals)
//   - plot: renders the interval file as a PNG band chart (report)
//
// The three families share one histogram gradient-boosting engine in
// sklearn/boosting; each family keeps its own parameter names and tree
// growth policy.
//
// # Quick Start
//
//	export TRAINING_DATA=data/train.csv VALIDATION_DATA=data/valid.csv
//	export CALIBRATION_SET=data/cal.csv TEST_DATA=data/test.csv
//	export MODEL=lightgbm PROBLEM_TYPE=regression DATASET=house
//	conformboost tune && conformboost train && conformboost intervals
//
// Library use:
//
//	est, _ := boosting.New(boosting.XGBoost, boosting.Regression)
//	_ = est.Fit(XTrain, yTrain)
//	nc, _ := conformal.CreateNc(est, conformal.WithNormalizer(neighbors.NewKNeighborsRegressor(11)))
//	icp, _ := conformal.NewIcpRegressor(nc)
//	_ = icp.Fit(XTrain, yTrain)
//	_ = icp.Calibrate(XCal, yCal)
//	bounds, _ := icp.Predict(XTest, 0.05)
package conformboost
