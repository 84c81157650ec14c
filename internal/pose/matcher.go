package pose

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
)

// Template is a named reference pose.
type Template struct {
	Name      string
	Angles    hand.HandAngles
	Flexion   [hand.NumFingers]float32
	Tolerance float64 // Maximum distance for a match
}

// NewTemplate builds a template from a pose.
func NewTemplate(name string, p HandPose, tolerance float64) *Template {
	return &Template{Name: name, Angles: p.Angles, Flexion: p.Flexion, Tolerance: tolerance}
}

// Match is the result of comparing a pose with a template.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+Distance), higher is better
	Distance float64
}

// Matcher recognises poses by comparing them with registered templates.
type Matcher struct {
	templates []*Template
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{templates: make([]*Template, 0)}
}

// DefaultMatcher recognises the preset poses of a hand model.
func DefaultMatcher(model *handmodel.Model) *Matcher {
	m := NewMatcher()
	m.AddTemplate(NewTemplate("flat", FlatHand(model), 0.5))
	m.AddTemplate(NewTemplate("fist", Fist(model), 0.5))
	m.AddTemplate(NewTemplate("thumbs_up", ThumbsUp(model), 0.5))
	m.AddTemplate(NewTemplate("idle", Idle(model), 0.3))
	return m
}

// AddTemplate registers a template. Nil templates are ignored.
func (m *Matcher) AddTemplate(t *Template) {
	if t == nil {
		return
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes a template by name.
func (m *Matcher) RemoveTemplate(name string) {
	for i, t := range m.templates {
		if t.Name == name {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Match returns the templates within tolerance of p, best first.
func (m *Matcher) Match(p HandPose) []Match {
	var matches []Match
	for _, t := range m.templates {
		d := Distance(p.Flexion, p.Angles, t.Flexion, t.Angles)
		if d <= t.Tolerance {
			matches = append(matches, Match{Template: t, Score: 1 / (1 + d), Distance: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Best returns the best match, if any.
func (m *Matcher) Best(p HandPose) (Match, bool) {
	matches := m.Match(p)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Distance is the L1 distance between flexion values plus the mean absolute
// joint angle difference expressed in quarter turns.
func Distance(flexA [hand.NumFingers]float32, anglesA hand.HandAngles, flexB [hand.NumFingers]float32, anglesB hand.HandAngles) float64 {
	fa, fb := make([]float64, hand.NumFingers), make([]float64, hand.NumFingers)
	for i := range flexA {
		fa[i], fb[i] = float64(flexA[i]), float64(flexB[i])
	}

	const n = hand.NumFingers * hand.JointsPerFinger * 3
	aa, ab := make([]float64, 0, n), make([]float64, 0, n)
	for f := range anglesA {
		for j := range anglesA[f] {
			a, b := anglesA[f][j], anglesB[f][j]
			aa = append(aa, float64(a.X), float64(a.Y), float64(a.Z))
			ab = append(ab, float64(b.X), float64(b.Y), float64(b.Z))
		}
	}
	return floats.Distance(fa, fb, 1) + floats.Distance(aa, ab, 1)/n/90
}
