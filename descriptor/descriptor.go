// CLAUDE:SUMMARY Recorded element descriptor: identifying attributes captured once, used to relocate the element later.
// Package descriptor defines the recorded element descriptor: a serializable
// snapshot of an element's identifying attributes captured at record time.
// Descriptors are immutable after creation; consumers clone, never mutate.
package descriptor

import "strings"

// Descriptor is a recorded snapshot of one page element. Every field may be
// empty except that a viable descriptor carries at least one of XPath, ID,
// Name, Selector, or Bounds (see Viable).
type Descriptor struct {
	Tag         string            `json:"tag,omitempty" yaml:"tag,omitempty"`
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	AriaLabel   string            `json:"aria_label,omitempty" yaml:"aria_label,omitempty"`
	DataAttrs   map[string]string `json:"data_attrs,omitempty" yaml:"data_attrs,omitempty"`

	// Text is the element's visible text, whitespace-normalized and
	// truncated at record time.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Selector is a generated CSS selector recorded for the element.
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`

	// XPath is the absolute path expression recorded for the element.
	XPath string `json:"xpath,omitempty" yaml:"xpath,omitempty"`

	Classes []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	PageURL string   `json:"page_url,omitempty" yaml:"page_url,omitempty"`

	// Bounds is the bounding rectangle at capture time, if known.
	Bounds *Rect `json:"bounds,omitempty" yaml:"bounds,omitempty"`

	// FramePath is the ordered chain of embedded-frame indices from the top
	// document down to the element's document.
	FramePath []int `json:"frame_path,omitempty" yaml:"frame_path,omitempty"`

	// ShadowHosts is the ordered chain of shadow-host selectors crossed to
	// reach the element.
	ShadowHosts []string `json:"shadow_hosts,omitempty" yaml:"shadow_hosts,omitempty"`
}

// Viable reports whether the descriptor carries enough signal for any
// strategy to work with: at least one of XPath, ID, Name, Selector, Bounds.
func (d *Descriptor) Viable() bool {
	if d == nil {
		return false
	}
	return d.XPath != "" || d.ID != "" || d.Name != "" || d.Selector != "" || d.Bounds != nil
}

// Clone returns a deep copy. The resolver works on clones so a caller's
// descriptor is never touched.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	if d.DataAttrs != nil {
		c.DataAttrs = make(map[string]string, len(d.DataAttrs))
		for k, v := range d.DataAttrs {
			c.DataAttrs[k] = v
		}
	}
	if d.Classes != nil {
		c.Classes = append([]string(nil), d.Classes...)
	}
	if d.Bounds != nil {
		b := *d.Bounds
		c.Bounds = &b
	}
	if d.FramePath != nil {
		c.FramePath = append([]int(nil), d.FramePath...)
	}
	if d.ShadowHosts != nil {
		c.ShadowHosts = append([]string(nil), d.ShadowHosts...)
	}
	return &c
}

// HasClass reports whether the descriptor recorded the given class token.
func (d *Descriptor) HasClass(name string) bool {
	for _, c := range d.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// ClassSet returns the recorded class tokens as a set.
func (d *Descriptor) ClassSet() map[string]bool {
	if len(d.Classes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(d.Classes))
	for _, c := range d.Classes {
		set[c] = true
	}
	return set
}

// String returns a short human-readable identification, tag-first, for logs
// and diagnostics.
func (d *Descriptor) String() string {
	var b strings.Builder
	if d.Tag != "" {
		b.WriteString(d.Tag)
	} else {
		b.WriteString("element")
	}
	switch {
	case d.ID != "":
		b.WriteString("#" + d.ID)
	case d.Name != "":
		b.WriteString("[name=" + d.Name + "]")
	case d.Text != "":
		t := d.Text
		if len(t) > 32 {
			t = t[:32] + "…"
		}
		b.WriteString(` "` + t + `"`)
	}
	return b.String()
}
