package service

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"ordsnap/internal/platform/logger"
)

func testLog() logger.Logger { return *logger.Named("encode-test") }

func TestMarshalPayload_PlainPath(t *testing.T) {
	b, err := marshalPayload(map[string][]string{"w": {"a"}}, testLog())
	if err != nil {
		t.Fatalf("marshalPayload: %v", err)
	}
	if string(b) != `{"w":["a"]}` {
		t.Fatalf("plain encode = %s", b)
	}
}

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next"`
}

func TestMarshalPayload_CycleGetsMarker(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b", Next: a}
	a.Next = b

	out, err := marshalPayload(a, testLog())
	if err != nil {
		t.Fatalf("marshalPayload on cycle: %v", err)
	}
	if !strings.Contains(string(out), circularMarker) {
		t.Fatalf("expected circular marker in %s", out)
	}
	// the result must itself be valid JSON
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("cycle output not valid JSON: %v", err)
	}
}

func TestMarshalPayload_SelfReferentialMap(t *testing.T) {
	m := map[string]any{"name": "root"}
	m["self"] = m

	out, err := marshalPayload(m, testLog())
	if err != nil {
		t.Fatalf("marshalPayload: %v", err)
	}
	if !strings.Contains(string(out), circularMarker) {
		t.Fatalf("expected circular marker in %s", out)
	}
}

func TestMarshalPayload_UnsupportedValues(t *testing.T) {
	payload := map[string]any{
		"fn":  func() {},
		"nan": math.NaN(),
		"ok":  "fine",
	}
	out, err := marshalPayload(payload, testLog())
	if err != nil {
		t.Fatalf("marshalPayload: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, unsupportedMarker) || !strings.Contains(s, "fine") {
		t.Fatalf("unexpected encode result: %s", s)
	}
}

func TestCapDepth_SubstitutesMarker(t *testing.T) {
	deep := map[string]any{}
	cur := deep
	for i := 0; i < 20; i++ {
		next := map[string]any{}
		cur["d"] = next
		cur = next
	}
	cur["leaf"] = "bottom"

	out := capDepth(deep, maxEncodeDepth)
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("capped output must marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, depthMarker) {
		t.Fatalf("expected depth marker in %s", s)
	}
	if strings.Contains(s, "bottom") {
		t.Fatalf("leaf below the cap should have been cut: %s", s)
	}
}

func TestSanitizeCycles_StructTagsRespected(t *testing.T) {
	type rec struct {
		Wallet string `json:"wallet"`
		Skip   string `json:"-"`
		IDs    []string
	}
	out := sanitizeCycles(rec{Wallet: "w", Skip: "no", IDs: []string{"a"}})
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("sanitize returned %T", out)
	}
	if m["wallet"] != "w" {
		t.Fatalf("json tag not honored: %v", m)
	}
	if _, present := m["Skip"]; present {
		t.Fatalf("json:\"-\" field not skipped: %v", m)
	}
	if _, present := m["IDs"]; !present {
		t.Fatalf("untagged field missing: %v", m)
	}
}

func TestChunkedSliceSharingIsNotACycle(t *testing.T) {
	shared := []string{"x"}
	payload := map[string]any{"a": shared, "b": shared}
	out, err := marshalPayload(payload, testLog())
	if err != nil {
		t.Fatalf("marshalPayload: %v", err)
	}
	// plain path succeeds here, so no markers at all
	if strings.Contains(string(out), circularMarker) {
		t.Fatalf("plain encode should have handled shared slices: %s", out)
	}
}
