// Package aftershock predicts the first aftershock of an earthquake from
// its magnitude, depth and epicenter, using two pre-trained ONNX
// regressors (aftershock magnitude and time to first aftershock).
//
// Quick start:
//
//	p, err := aftershock.New(aftershock.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	pred, err := p.Predict(aftershock.Input{Magnitude: 6.1, Depth: 10, Latitude: 38.2, Longitude: 27.1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(pred.Magnitude, pred.TimeToAftershock)
//
// A Predictor is safe for concurrent use. Create once, reuse across
// requests.
package aftershock
