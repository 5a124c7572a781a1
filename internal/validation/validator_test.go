package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDirect() string {
	return `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs1", "obs2"],
	    "parameters": ["C1", "C2"],
	    "polynomial_order": 2,
	    "scale": 4.8,
	    "basis": {"wcxf": {"eft": "WET", "basis": "flavio", "sectors": ["bsll"]}}
	  },
	  "data": {
	    "observable_central": {
	      "('','')": [1.0, 2.0],
	      "('C1','C2')": [0.5, -0.5]
	    }
	  }
	}`
}

func hasViolation(vs []Violation, code Code, pathPart string) bool {
	for _, v := range vs {
		if v.Code == code && strings.Contains(v.Path, pathPart) {
			return true
		}
	}
	return false
}

func TestValidDocumentAccepted(t *testing.T) {
	vs := Validate([]byte(validDirect()), Options{})
	assert.Empty(t, vs)
}

func TestMalformedJSONIsStructural(t *testing.T) {
	vs := Validate([]byte(`{"$schema": `), Options{})
	require.Len(t, vs, 1)
	assert.Equal(t, CodeStructural, vs[0].Code)
}

func TestSchemaVersion(t *testing.T) {
	doc := strings.Replace(validDirect(), "popxf-1.0.json", "popxf-9.9.json", 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaVersion, "$schema"))

	// forward-compat opt-in silences only the version check
	vs = Validate([]byte(doc), Options{AcceptAnySchemaVersion: true})
	assert.Empty(t, vs)
}

func TestPolynomialOrderRange(t *testing.T) {
	doc := strings.Replace(validDirect(), `"polynomial_order": 2`, `"polynomial_order": 6`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "polynomial_order"))
}

func TestScaleArityMismatch(t *testing.T) {
	doc := strings.Replace(validDirect(), `"scale": 4.8`, `"scale": [4.8, 4.2, 1.0]`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "metadata.scale"))
}

func TestBasisNeedsAnArm(t *testing.T) {
	doc := strings.Replace(validDirect(),
		`"basis": {"wcxf": {"eft": "WET", "basis": "flavio", "sectors": ["bsll"]}}`,
		`"basis": {}`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "metadata.basis"))
}

func TestDuplicateAndEmptyNames(t *testing.T) {
	doc := strings.Replace(validDirect(),
		`"observable_names": ["obs1", "obs2"]`,
		`"observable_names": ["obs1", "obs1", ""]`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "observable_names[1]"))
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "observable_names[2]"))
}

func TestUndeclaredParameterInKey(t *testing.T) {
	doc := strings.Replace(validDirect(), `"('C1','C2')"`, `"('C1','C9')"`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "observable_central"))
}

func TestNonCanonicalKeyRejected(t *testing.T) {
	doc := strings.Replace(validDirect(), `"('C1','C2')"`, `"('C2','C1')"`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "observable_central"))
}

func TestWrongSequenceWidth(t *testing.T) {
	doc := strings.Replace(validDirect(), `"('C1','C2')": [0.5, -0.5]`, `"('C1','C2')": [0.5]`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "observable_central"))
}

func TestModeConflictBothPresent(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0]},
	    "polynomial_central": {"('','')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "p"}, "expression": "x"}]
	  }
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeModeConflict, "observable_central"))
}

func TestModeConflictPartialGroup(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0]}
	  }
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeModeConflict, "data"))
}

func TestModeConflictNeitherPresent(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "basis": {"custom": {}}
	  },
	  "data": {}
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeModeConflict, "data"))
}

func TestExpressionVariableMustNameDeclaredPolynomial(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "polynomial_central": {"('','')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "nope"}, "expression": "x"}]
	  }
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "variables"))
}

func TestUnparsableExpressionFlagged(t *testing.T) {
	doc := `{
	  "$schema": "https://json.schemastore.org/popxf-1.0.json",
	  "metadata": {
	    "observable_names": ["obs"],
	    "parameters": ["C1"],
	    "scale": 1.0,
	    "polynomial_names": ["p"],
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "polynomial_central": {"('','')": [1.0]},
	    "observable_expressions": [{"variables": {"x": "p"}, "expression": "x +"}]
	  }
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, "expression"))
}

func TestUncertaintyShapes(t *testing.T) {
	doc := strings.Replace(validDirect(), `"observable_central": {`,
		`"observable_uncertainties": {
	      "total": [0.05, 0.06],
	      "stat": {"('','')": [0.01, 0.01]},
	      "broken": [0.05],
	      "bad": "not a shape"
	    },
	    "observable_central": {`, 1)
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeSchemaViolation, `"broken"`))
	assert.True(t, hasViolation(vs, CodeStructural, `"bad"`))
	assert.False(t, hasViolation(vs, CodeSchemaViolation, `"total"`))
	assert.False(t, hasViolation(vs, CodeSchemaViolation, `"stat"`))
}

func TestCollectAllReportsEverything(t *testing.T) {
	doc := `{
	  "$schema": "wrong",
	  "metadata": {
	    "observable_names": [],
	    "parameters": ["C1", "C1"],
	    "polynomial_order": 0,
	    "basis": {}
	  },
	  "data": {}
	}`
	vs := Validate([]byte(doc), Options{})
	// One pass collects all of: schema version, empty observables, duplicate
	// parameter, order range, basis arms, missing scale, missing mode fields.
	require.GreaterOrEqual(t, len(vs), 6)
}

func TestWrongPrimitiveTypesAreStructural(t *testing.T) {
	doc := `{
	  "$schema": 17,
	  "metadata": {
	    "observable_names": "obs",
	    "parameters": ["C1"],
	    "scale": true,
	    "basis": {"custom": {}}
	  },
	  "data": {
	    "observable_central": {"('','')": [1.0]}
	  }
	}`
	vs := Validate([]byte(doc), Options{})
	assert.True(t, hasViolation(vs, CodeStructural, "$schema"))
	assert.True(t, hasViolation(vs, CodeStructural, "observable_names"))
	assert.True(t, hasViolation(vs, CodeStructural, "metadata.scale"))
}
