package scan

import (
	"context"
	"math"
	"testing"

	"popxf/internal/engine"
	"popxf/internal/validation"
)

const lineDoc = `{
  "$schema": "https://json.schemastore.org/popxf-1.0.json",
  "metadata": {
    "observable_names": ["linear", "quadratic"],
    "parameters": ["C1"],
    "scale": 4.8,
    "basis": {"custom": {}}
  },
  "data": {
    "observable_central": {
      "('','')": [1.0, 0.0],
      "('','C1')": [2.0, 0.0],
      "('C1','C1')": [0.0, 1.0]
    }
  }
}`

func TestRunEvaluatesAllPoints(t *testing.T) {
	e, err := engine.Build([]byte(lineDoc), validation.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	const n = 101
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{"C1": complex(float64(i), 0)}
	}

	res, err := Run(context.Background(), e, Request{Points: points, Workers: 8})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Centrals) != n {
		t.Fatalf("got %d rows, want %d", len(res.Centrals), n)
	}
	if res.Failed != 0 || res.Tainted != 0 {
		t.Errorf("Failed=%d Tainted=%d, want 0/0", res.Failed, res.Tainted)
	}

	// linear = 1 + 2*C1, quadratic = C1^2
	for i, row := range res.Centrals {
		c := float64(i)
		if math.Abs(row[0]-(1+2*c)) > 1e-9 {
			t.Fatalf("point %d linear = %v", i, row[0])
		}
		if math.Abs(row[1]-c*c) > 1e-9 {
			t.Fatalf("point %d quadratic = %v", i, row[1])
		}
	}

	summaries, err := res.Summaries()
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if summaries[0].Min != 1 || summaries[0].Max != 201 {
		t.Errorf("linear summary = %+v", summaries[0])
	}
	if summaries[0].Mean != 101 {
		t.Errorf("linear mean = %v, want 101", summaries[0].Mean)
	}
}

func TestRunCountsTaintedPoints(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["inv"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "polynomial_central": {"('','C1')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "p"}, "expression": "1/x"}]
	  }
	}`
	e, err := engine.Build([]byte(doc), validation.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	points := []Point{
		{"C1": 1},
		{"C1": 0}, // division by zero
		{"C1": 2},
	}
	res, err := Run(context.Background(), e, Request{Points: points})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Tainted != 1 {
		t.Errorf("Tainted = %d, want 1", res.Tainted)
	}
	if res.Failed != 0 {
		t.Errorf("Failed = %d, want 0", res.Failed)
	}
}
