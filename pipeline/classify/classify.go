/* classify trains a linear classifier on the train bags of words and evaluates it on both splits.
 *
 * Copyright 2020 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 *     Unless required by applicable law or agreed to in writing, software
 *     distributed under the License is distributed on an "AS IS" BASIS,
 *     WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *     See the License for the specific language governing permissions and
 *     limitations under the License.
 */
package classify

import (
	"fmt"

	"github.com/google-research/streamlined-genre/pipeline/config"
	"github.com/google-research/streamlined-genre/tools/arff"
	"github.com/google-research/streamlined-genre/tools/svm"
	"github.com/sirupsen/logrus"
)

// Result is the accuracy of a classifier on both splits.
type Result struct {
	TrainAccuracy float64
	TestAccuracy  float64
}

func (r Result) String() string {
	return fmt.Sprintf("train accuracy %.4f, test accuracy %.4f", r.TrainAccuracy, r.TestAccuracy)
}

// Params returns the classifier parameters of the configuration.
func Params(cfg *config.Config) svm.Params {
	return svm.Params{
		C:       cfg.Classify.C,
		MaxIter: cfg.Classify.MaxIter,
		Tol:     cfg.Classify.Tol,
		Seed:    cfg.Classify.Seed,
	}
}

func load(path string) ([][]float64, []string, error) {
	rel, err := arff.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	features, classes, err := rel.Matrix()
	if err != nil {
		return nil, nil, fmt.Errorf("%q: %w", path, err)
	}
	return features, classes, nil
}

// Classify trains on the ARFF file train and returns the accuracy on train and test.
func Classify(train, test string, params svm.Params) (*Result, error) {
	trainFeatures, trainClasses, err := load(train)
	if err != nil {
		return nil, err
	}
	testFeatures, testClasses, err := load(test)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{
		"component": "classify",
		"path":      train,
	})
	log.WithFields(logrus.Fields{
		"instances": len(trainFeatures),
		"features":  len(trainFeatures[0]),
	}).Info("Training")
	model, err := svm.Fit(trainFeatures, trainClasses, params)
	if err != nil {
		return nil, fmt.Errorf("training on %q: %w", train, err)
	}
	result := &Result{}
	if result.TrainAccuracy, err = model.Accuracy(trainFeatures, trainClasses); err != nil {
		return nil, err
	}
	if result.TestAccuracy, err = model.Accuracy(testFeatures, testClasses); err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", test, err)
	}
	log.WithFields(logrus.Fields{
		"train_accuracy": result.TrainAccuracy,
		"test_accuracy":  result.TestAccuracy,
	}).Info("Evaluated")
	return result, nil
}
