package resolve

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/dom/memdom"
)

func scopeFor(t *testing.T, src string) dom.Queryable {
	t.Helper()
	q, err := memdom.MustParse(src).Document(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return q
}

const page = `<html><body>
<div id="main">
  <button id="save" name="save-btn" class="btn primary" data-testid="save" aria-label="Save document">Save changes</button>
  <input name="email" placeholder="Enter your email">
</div>
</body></html>`

func TestFindByXPath(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	res := r.Find(context.Background(), &descriptor.Descriptor{XPath: "/html/body/div/button"}, q)
	if !res.Found() {
		t.Fatalf("not found: %s", res.Diagnostic)
	}
	if res.Strategy != StrategyXPath {
		t.Fatalf("strategy = %q, want %q", res.Strategy, StrategyXPath)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", res.Confidence)
	}
	if got := res.Node.Attr("id"); got != "save" {
		t.Fatalf("resolved id = %q, want save", got)
	}
}

func TestFindByID(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	res := r.Find(context.Background(), &descriptor.Descriptor{ID: "save"}, q)
	if !res.Found() || res.Strategy != StrategyID {
		t.Fatalf("strategy = %q, found = %v", res.Strategy, res.Found())
	}
	if res.Confidence != 0.90 {
		t.Fatalf("confidence = %v, want 0.90", res.Confidence)
	}
}

func TestFindByName(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	res := r.Find(context.Background(), &descriptor.Descriptor{Name: "email"}, q)
	if !res.Found() || res.Strategy != StrategyName {
		t.Fatalf("strategy = %q, found = %v", res.Strategy, res.Found())
	}
	if res.Confidence != 0.80 {
		t.Fatalf("confidence = %v, want 0.80", res.Confidence)
	}
}

func TestFindByAriaLabel(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{Selector: "#gone", AriaLabel: "Save document"}
	res := r.FindOnce(d, q)
	if !res.Found() || res.Strategy != StrategyAriaLabel {
		t.Fatalf("strategy = %q, found = %v (%s)", res.Strategy, res.Found(), res.Diagnostic)
	}
	if res.Confidence != 0.75 {
		t.Fatalf("confidence = %v, want 0.75", res.Confidence)
	}
}

func TestFindByPlaceholder(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{Selector: "#gone", Placeholder: "Enter your email"}
	res := r.FindOnce(d, q)
	if !res.Found() || res.Strategy != StrategyPlaceholder {
		t.Fatalf("strategy = %q, found = %v (%s)", res.Strategy, res.Found(), res.Diagnostic)
	}
	if res.Confidence != 0.70 {
		t.Fatalf("confidence = %v, want 0.70", res.Confidence)
	}
}

func TestFindByDataAttrs(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{
		Selector:  "#gone",
		DataAttrs: map[string]string{"data-testid": "save"},
	}
	res := r.FindOnce(d, q)
	if !res.Found() || res.Strategy != StrategyDataAttrs {
		t.Fatalf("strategy = %q, found = %v (%s)", res.Strategy, res.Found(), res.Diagnostic)
	}
	if res.Confidence != 0.65 {
		t.Fatalf("confidence = %v, want 0.65", res.Confidence)
	}
}

func TestFindBySelectorRebuilt(t *testing.T) {
	// The recorded selector rotted; the rebuilt tag+class candidate still
	// matches uniquely.
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{
		Selector: "#old-build-hash",
		Tag:      "button",
		Classes:  []string{"btn", "primary", "css-1a2b3c"},
	}
	res := r.FindOnce(d, q)
	if !res.Found() || res.Strategy != StrategySelector {
		t.Fatalf("strategy = %q, found = %v (%s)", res.Strategy, res.Found(), res.Diagnostic)
	}
	if res.Confidence <= baseSelector || res.Confidence >= baseName {
		t.Fatalf("confidence = %v, want in (%v, %v)", res.Confidence, baseSelector, baseName)
	}
	if got := res.Node.Attr("id"); got != "save" {
		t.Fatalf("resolved id = %q, want save", got)
	}
}

func TestFindByFuzzyText(t *testing.T) {
	src := `<html><body>
<p>completely unrelated paragraph content with many filler words spread around the page body</p>
<button>Submit the Form Now</button>
</body></html>`
	q := scopeFor(t, src)
	r := New(Options{})

	d := &descriptor.Descriptor{Selector: "#gone", Text: "Submit Form"}
	res := r.FindOnce(d, q)
	if !res.Found() || res.Strategy != StrategyFuzzyText {
		t.Fatalf("strategy = %q, found = %v (%s)", res.Strategy, res.Found(), res.Diagnostic)
	}
	// Renamed but similar text: more than the floor, less than an exact hit.
	if res.Confidence <= 0.40 || res.Confidence >= 0.80 {
		t.Fatalf("confidence = %v, want strictly between 0.40 and 0.80", res.Confidence)
	}
	if got := res.Node.Tag(); got != "button" {
		t.Fatalf("resolved tag = %q, want button", got)
	}
}

func TestFindBySpatial(t *testing.T) {
	src := `<html><body>
<button id="near" style="left: 110px; top: 10px; width: 80px; height: 30px">A</button>
<button id="far" style="left: 900px; top: 900px; width: 80px; height: 30px">B</button>
</body></html>`
	q := scopeFor(t, src)
	r := New(Options{})

	d := &descriptor.Descriptor{
		Tag:    "button",
		Bounds: &descriptor.Rect{X: 10, Y: 10, Width: 80, Height: 30},
	}
	res := r.FindOnce(d, q)
	if !res.Found() {
		t.Fatalf("not found: %s", res.Diagnostic)
	}
	// Tag-only selector candidates are ambiguous here; spatial either wins
	// outright or the selector strategy resolves to some button. Force the
	// spatial path by disabling the selector strategy.
	r = New(Options{Disabled: []string{StrategySelector}})
	res = r.FindOnce(d, q)
	if res.Strategy != StrategySpatial {
		t.Fatalf("strategy = %q, want %q (%s)", res.Strategy, StrategySpatial, res.Diagnostic)
	}
	if got := res.Node.Attr("id"); got != "near" {
		t.Fatalf("resolved id = %q, want near", got)
	}
	if res.Confidence < baseSpatial || res.Confidence > 0.60 {
		t.Fatalf("confidence = %v out of expected band", res.Confidence)
	}
}

func TestPriorityIDBeatsName(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{ID: "save", Name: "save-btn"}
	res := r.FindOnce(d, q)
	if res.Strategy != StrategyID {
		t.Fatalf("strategy = %q, want id first", res.Strategy)
	}
}

func TestOrderOverride(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{Order: []string{StrategyName, StrategyID}})

	d := &descriptor.Descriptor{ID: "save", Name: "save-btn"}
	res := r.FindOnce(d, q)
	if res.Strategy != StrategyName {
		t.Fatalf("strategy = %q, want name per override", res.Strategy)
	}
}

func TestDisabledStrategy(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{Disabled: []string{StrategyXPath}})

	d := &descriptor.Descriptor{XPath: "/html/body/div/button", ID: "save"}
	res := r.FindOnce(d, q)
	if res.Strategy != StrategyID {
		t.Fatalf("strategy = %q, want id with xpath disabled", res.Strategy)
	}
	for _, name := range res.Attempted {
		if name == StrategyXPath {
			t.Fatal("disabled strategy was attempted")
		}
	}
}

func TestMinConfidenceFloor(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{MinConfidence: 0.85})

	// Name resolves at 0.80, under the floor; nothing else can serve.
	d := &descriptor.Descriptor{Name: "email"}
	res := r.FindOnce(d, q)
	if res.Found() {
		t.Fatalf("found %q at %v despite floor", res.Strategy, res.Confidence)
	}
	if res.Diagnostic == "" {
		t.Fatal("expected a diagnostic on miss")
	}
}

func TestRequireVisible(t *testing.T) {
	src := `<html><body>
<button id="save" style="display:none">Hidden</button>
<button name="save-btn">Shown</button>
</body></html>`
	q := scopeFor(t, src)
	r := New(Options{RequireVisible: true})

	d := &descriptor.Descriptor{ID: "save", Name: "save-btn"}
	res := r.FindOnce(d, q)
	if !res.Found() {
		t.Fatalf("not found: %s", res.Diagnostic)
	}
	if res.Strategy != StrategyName {
		t.Fatalf("strategy = %q, want name after invisible id hit", res.Strategy)
	}
}

func TestNotViableDescriptor(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	res := r.Find(context.Background(), &descriptor.Descriptor{Tag: "button"}, q)
	if res.Found() {
		t.Fatal("non-viable descriptor should not resolve")
	}
	if !strings.Contains(res.Diagnostic, "not viable") {
		t.Fatalf("diagnostic = %q", res.Diagnostic)
	}
	if len(res.Attempted) != 0 {
		t.Fatalf("attempted = %v, want none", res.Attempted)
	}
}

func TestFindRetriesThenGivesUp(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{Timeout: 60 * time.Millisecond, RetryInterval: 10 * time.Millisecond, MaxRetries: 3})

	res := r.Find(context.Background(), &descriptor.Descriptor{ID: "missing"}, q)
	if res.Found() {
		t.Fatal("unexpected match")
	}
	if res.Retries == 0 {
		t.Fatal("expected at least one retry")
	}
	if res.Retries > 3 {
		t.Fatalf("retries = %d, want <= 3", res.Retries)
	}
	if res.Diagnostic == "" {
		t.Fatal("expected a diagnostic")
	}
}

func TestFindHonorsContextCancel(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{Timeout: 2 * time.Second, RetryInterval: 20 * time.Millisecond, MaxRetries: 50})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := r.Find(ctx, &descriptor.Descriptor{ID: "missing"}, q)
	if res.Found() {
		t.Fatal("unexpected match")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancel not honored, took %s", elapsed)
	}
	if !strings.Contains(res.Diagnostic, "canceled") {
		t.Fatalf("diagnostic = %q", res.Diagnostic)
	}
}

func TestCallerDescriptorNotMutated(t *testing.T) {
	q := scopeFor(t, page)
	r := New(Options{})

	d := &descriptor.Descriptor{ID: "save", Classes: []string{"btn"}}
	before := d.Clone()
	r.FindOnce(d, q)
	if d.ID != before.ID || len(d.Classes) != len(before.Classes) || d.Classes[0] != before.Classes[0] {
		t.Fatal("resolution mutated the caller's descriptor")
	}
}

// panicQueryable delegates to an inner scope but panics on path queries, as a
// broken host document might.
type panicQueryable struct {
	inner dom.Queryable
}

func (p *panicQueryable) Query(sel string) (dom.Node, error)      { return p.inner.Query(sel) }
func (p *panicQueryable) QueryAll(sel string) ([]dom.Node, error) { return p.inner.QueryAll(sel) }
func (p *panicQueryable) QueryXPath(expr string) (dom.Node, error) {
	panic("host document exploded")
}
func (p *panicQueryable) Elements(tag string) ([]dom.Node, error) { return p.inner.Elements(tag) }

func TestStrategyPanicRecovered(t *testing.T) {
	q := &panicQueryable{inner: scopeFor(t, page)}
	r := New(Options{})

	d := &descriptor.Descriptor{XPath: "/html/body/div/button", ID: "save"}
	res := r.FindOnce(d, q)
	if !res.Found() {
		t.Fatalf("panic aborted the search: %s", res.Diagnostic)
	}
	if res.Strategy != StrategyID {
		t.Fatalf("strategy = %q, want id after xpath panic", res.Strategy)
	}
}

func TestEffectiveOrder(t *testing.T) {
	r := New(Options{Disabled: []string{StrategySpatial}, Order: []string{StrategyID, "bogus", StrategySpatial, StrategyName}})
	got := r.Order()
	want := []string{StrategyID, StrategyName}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
