package engine

import (
	"errors"
	"math"
	"testing"

	"popxf/domain/core"
	"popxf/internal/validation"
)

const directDoc = `{
  "$schema": "https://json.schemastore.org/popxf-1.0.json",
  "metadata": {
    "observable_names": ["BR(B->Xs gamma)", "R(K)"],
    "parameters": ["C1", "C7"],
    "polynomial_order": 2,
    "scale": [4.8, 4.2],
    "basis": {"wcxf": {"eft": "WET", "basis": "flavio"}}
  },
  "data": {
    "observable_central": {
      "('','')": [1.0, 0.5],
      "('','C1')": [1.2, 0.0],
      "('','C7','RI')": [0.0, 2.0],
      "('C1','C7')": [1.4, 0.0],
      "('C7','C7')": [0.0, 3.0]
    },
    "observable_uncertainties": {
      "total": [0.05, 0.06],
      "scale": {
        "('','')": [0.01, 0.02],
        "('','C1')": [0.1, 0.0]
      }
    }
  }
}`

const functionDoc = `{
  "$schema": "https://json.schemastore.org/popxf-1.0.json",
  "metadata": {
    "observable_names": ["ratio"],
    "parameters": ["C1", "C2"],
    "polynomial_order": 2,
    "scale": 4.8,
    "polynomial_names": ["polynomial 1", "polynomial 2"],
    "basis": {"custom": {"convention": "paper appendix B"}}
  },
  "data": {
    "polynomial_central": {
      "('','')": [4.0, 0.0],
      "('','C1')": [0.0, 1.0]
    },
    "observable_expressions": [
      {
        "variables": {"num": "polynomial 1", "den": "polynomial 2"},
        "expression": "num/den"
      }
    ]
  }
}`

func buildEngine(t *testing.T, doc string) *Engine {
	t.Helper()
	e, err := Build([]byte(doc), validation.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return e
}

func TestDirectModeEvaluation(t *testing.T) {
	e := buildEngine(t, directDoc)
	if e.Mode() != ModeDirect {
		t.Fatalf("Mode = %v, want direct", e.Mode())
	}

	point := map[string]complex128{
		"C1": 2,
		"C7": complex(0, 1.5),
	}
	results := e.Evaluate(point)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	// obs 0: 1.0 + 1.2*Re(C1) + 1.4*Re(C1)*Re(C7); Re(C7)=0
	first := results["BR(B->Xs gamma)"]
	if first.Err != nil {
		t.Fatalf("observable 0 errored: %v", first.Err)
	}
	if math.Abs(first.Central-3.4) > 1e-12 {
		t.Errorf("observable 0 = %v, want 3.4", first.Central)
	}

	// obs 1: 0.5 + 2.0*Im(C7) + 3.0*Re(C7)^2 = 0.5 + 3.0
	second := results["R(K)"]
	if math.Abs(second.Central-3.5) > 1e-12 {
		t.Errorf("observable 1 = %v, want 3.5", second.Central)
	}

	// uncertainties: "total" bare = constant; "scale" table depends on C1
	if math.Abs(first.Uncertainties["total"]-0.05) > 1e-12 {
		t.Errorf("total uncertainty = %v, want 0.05", first.Uncertainties["total"])
	}
	if math.Abs(first.Uncertainties["scale"]-(0.01+0.1*2)) > 1e-12 {
		t.Errorf("scale uncertainty = %v, want 0.21", first.Uncertainties["scale"])
	}
}

func TestFunctionModeEvaluation(t *testing.T) {
	e := buildEngine(t, functionDoc)
	if e.Mode() != ModeFunction {
		t.Fatalf("Mode = %v, want function", e.Mode())
	}

	// P1 = 4.0, P2 = Re(C1) = 2.0 -> ratio = 2.0
	point := map[string]complex128{"C1": 2}
	results := e.Evaluate(point)
	res := results["ratio"]
	if res.Err != nil {
		t.Fatalf("evaluation errored: %v", res.Err)
	}
	if math.Abs(res.Central-2.0) > 1e-12 {
		t.Errorf("ratio = %v, want 2.0", res.Central)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	values := e.PolynomialValues(point)
	if math.Abs(values["polynomial 1"]-4.0) > 1e-12 {
		t.Errorf("polynomial 1 = %v, want 4.0", values["polynomial 1"])
	}
}

func TestFunctionModeDivisionByZeroWarns(t *testing.T) {
	e := buildEngine(t, functionDoc)

	// P2 = Re(C1) = 0 -> num/den divides by zero: warning, not a crash.
	results := e.Evaluate(map[string]complex128{"C1": 0})
	res := results["ratio"]
	if res.Err != nil {
		t.Fatalf("division by zero should not be an error: %v", res.Err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a domain warning for division by zero")
	}
	if !math.IsInf(res.Central, 1) {
		t.Errorf("IEEE result should be +Inf, got %v", res.Central)
	}
}

func TestModeConflictRejected(t *testing.T) {
	conflict := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 4.8,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0]},
	    "polynomial_central": {"('','')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "p"}, "expression": "x"}]
	  }
	}`
	_, err := Build([]byte(conflict), validation.Options{})
	var invalid *InvalidDocumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("Build = %v, want InvalidDocumentError", err)
	}
	found := false
	for _, violation := range invalid.Violations {
		if violation.Code == validation.CodeModeConflict {
			found = true
		}
	}
	if !found {
		t.Errorf("no mode_conflict violation in %v", invalid.Violations)
	}
}

func TestScaleResolution(t *testing.T) {
	direct := buildEngine(t, directDoc)
	if direct.ScaleFor(0) != 4.8 || direct.ScaleFor(1) != 4.2 {
		t.Errorf("array scales = %v, %v", direct.ScaleFor(0), direct.ScaleFor(1))
	}

	fn := buildEngine(t, functionDoc)
	if fn.ScaleFor(0) != 4.8 {
		t.Errorf("scalar scale = %v, want 4.8", fn.ScaleFor(0))
	}
}

func TestScaleArrayRejectedInFunctionMode(t *testing.T) {
	bad := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["ratio"],
	    "parameters": ["C1"],
	    "scale": [4.8],
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "polynomial_central": {"('','')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "p"}, "expression": "x"}]
	  }
	}`
	if _, err := Build([]byte(bad), validation.Options{}); err == nil {
		t.Fatal("scale array in function mode should be rejected")
	}
}

func TestBareAndTableUncertaintiesAgree(t *testing.T) {
	bare := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["a", "b", "c"],
	    "parameters": ["C1"],
	    "scale": 100.0,
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0, 2.0, 3.0]},
	    "observable_uncertainties": {"total": [0.05, 0.06, 0.01]}
	  }
	}`
	object := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["a", "b", "c"],
	    "parameters": ["C1"],
	    "scale": 100.0,
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0, 2.0, 3.0]},
	    "observable_uncertainties": {"total": {"('','')": [0.05, 0.06, 0.01]}}
	  }
	}`
	point := map[string]complex128{"C1": 7}
	e1 := buildEngine(t, bare)
	e2 := buildEngine(t, object)
	r1 := e1.Evaluate(point)
	r2 := e2.Evaluate(point)
	for _, name := range []string{"a", "b", "c"} {
		u1 := r1[name].Uncertainties["total"]
		u2 := r2[name].Uncertainties["total"]
		if u1 != u2 {
			t.Errorf("%s: bare %v != object %v", name, u1, u2)
		}
	}
}

func TestPerObservableErrorScoping(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["good", "bad"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "polynomial_central": {"('','C1')": [1.0]},
	    "observable_expressions": [
	      {"variables": {"x": "p"}, "expression": "2*x"},
	      {"variables": {"x": "p"}, "expression": "x + undeclared"}
	    ]
	  }
	}`
	e := buildEngine(t, doc)
	results := e.Evaluate(map[string]complex128{"C1": 3})

	good := results["good"]
	if good.Err != nil {
		t.Fatalf("good observable errored: %v", good.Err)
	}
	if math.Abs(good.Central-6.0) > 1e-12 {
		t.Errorf("good = %v, want 6.0", good.Central)
	}

	bad := results["bad"]
	if !errors.Is(bad.Err, core.ErrUnknownVariable) {
		t.Errorf("bad.Err = %v, want ErrUnknownVariable", bad.Err)
	}
}
