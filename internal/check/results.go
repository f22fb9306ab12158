// Package check runs AI review of quiz content and decodes the findings.
//
// A review reply is decoded tolerantly: models answer in several shapes and
// with German or English field names, and often point at a generic label
// instead of the faulty text. Decode maps all of these onto Results.
package check

// Category groups suggestions.
type Category string

const (
	Factual    Category = "fachlich"
	Language   Category = "sprachlich"
	Guidelines Category = "guidelines"
)

// Categories lists all categories in display order.
var Categories = []Category{Factual, Language, Guidelines}

// Suggestion is one finding of a review.
type Suggestion struct {
	ID          string   `json:"id" yaml:"id"`
	Category    Category `json:"category" yaml:"category"`
	Original    string   `json:"original" yaml:"original"`
	Suggestion  string   `json:"suggestion" yaml:"suggestion"`
	Explanation string   `json:"explanation" yaml:"explanation"`
	Sources     []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Results holds the findings of a review by category.
type Results struct {
	Factual    []Suggestion `json:"fachlich" yaml:"fachlich"`
	Language   []Suggestion `json:"sprachlich" yaml:"sprachlich"`
	Guidelines []Suggestion `json:"guidelines" yaml:"guidelines"`
}

// Empty returns results with non-nil empty lists.
func Empty() Results {
	return Results{Factual: []Suggestion{}, Language: []Suggestion{}, Guidelines: []Suggestion{}}
}

// Get returns the suggestions of category c.
func (r Results) Get(c Category) []Suggestion {
	switch c {
	case Factual:
		return r.Factual
	case Language:
		return r.Language
	case Guidelines:
		return r.Guidelines
	}
	return nil
}

// All returns every suggestion in category order.
func (r Results) All() []Suggestion {
	all := make([]Suggestion, 0, r.Len())
	all = append(all, r.Factual...)
	all = append(all, r.Language...)
	return append(all, r.Guidelines...)
}

// Len returns the number of suggestions.
func (r Results) Len() int {
	return len(r.Factual) + len(r.Language) + len(r.Guidelines)
}

// Find returns the suggestion with the given id.
func (r Results) Find(id string) (Suggestion, bool) {
	for _, s := range r.All() {
		if s.ID == id {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Remove returns the results without the suggestion with the given id.
func (r Results) Remove(id string) Results {
	return r.filter(func(s Suggestion) bool { return s.ID != id })
}

// Without drops every suggestion with the same original, suggestion and
// explanation as s, in any category. Used once s has been applied.
func (r Results) Without(s Suggestion) Results {
	return r.filter(func(o Suggestion) bool {
		return o.Original != s.Original || o.Suggestion != s.Suggestion || o.Explanation != s.Explanation
	})
}

func (r Results) filter(keep func(Suggestion) bool) Results {
	pick := func(in []Suggestion) []Suggestion {
		out := make([]Suggestion, 0, len(in))
		for _, s := range in {
			if keep(s) {
				out = append(out, s)
			}
		}
		return out
	}
	return Results{Factual: pick(r.Factual), Language: pick(r.Language), Guidelines: pick(r.Guidelines)}
}
