package capture

import (
	"testing"
)

type innerStruct struct {
	Value  string
	hidden string // unexported, must never appear in Sanitize output
}

type outerStruct struct {
	Name  string
	Inner innerStruct
}

func TestSanitizeStructExportedFieldsOnly(t *testing.T) {
	out := Sanitize(outerStruct{Name: "n", Inner: innerStruct{Value: "v", hidden: "h"}})
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected a map, got %T", out)
	}
	if m["Name"] != "n" {
		t.Fatalf("expected Name field preserved, got %+v", m)
	}
	inner := m["Inner"].(map[string]any)
	if inner["Value"] != "v" {
		t.Fatalf("expected nested Value preserved, got %+v", inner)
	}
	if _, exists := inner["hidden"]; exists {
		t.Fatalf("expected unexported field to be excluded, got %+v", inner)
	}
}

func TestSanitizeNilPointerAndInterface(t *testing.T) {
	var p *int
	if out := Sanitize(p); out != nil {
		t.Fatalf("expected nil pointer to sanitize to nil, got %v", out)
	}
	var v any
	if out := Sanitize(v); out != nil {
		t.Fatalf("expected nil interface to sanitize to nil, got %v", out)
	}
}

func TestSanitizeMapAndSlice(t *testing.T) {
	out := Sanitize(map[string]int{"a": 1})
	m := out.(map[string]any)
	if m["a"] != 1 {
		t.Fatalf("expected map value preserved, got %+v", m)
	}

	sliceOut := Sanitize([]string{"x", "y"})
	s := sliceOut.([]any)
	if len(s) != 2 || s[0] != "x" {
		t.Fatalf("expected slice preserved, got %+v", s)
	}
}

type recursiveNode struct {
	Next *recursiveNode
}

func TestSanitizeDepthCapReplacesDeepNesting(t *testing.T) {
	var head *recursiveNode
	for i := 0; i < maxSerializeDepth+5; i++ {
		head = &recursiveNode{Next: head}
	}
	out := Sanitize(*head)

	depth := 0
	cur := out
	for {
		m, ok := cur.(map[string]any)
		if !ok {
			break
		}
		next, exists := m["Next"]
		if !exists || next == nil {
			break
		}
		if s, ok := next.(string); ok {
			if s != "<max depth reached>" {
				t.Fatalf("expected depth cap placeholder, got %q", s)
			}
			return
		}
		cur = next
		depth++
		if depth > maxSerializeDepth+10 {
			t.Fatalf("expected depth cap to trigger within bound")
		}
	}
	t.Fatalf("expected to reach the depth cap placeholder")
}
