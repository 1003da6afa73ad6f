package domain

// Category is one entry of the taxonomy: a name and the terms that vote for it.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Topics   []string `yaml:"topics" json:"topics"`
}

// Taxonomy is the ordered list of categories. The order is significant:
// when two categories score the same, the one declared first wins.
type Taxonomy []Category

// Names returns the category names in declaration order.
func (t Taxonomy) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

// Lookup returns the category with the given name.
func (t Taxonomy) Lookup(name string) (Category, bool) {
	for _, c := range t {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryScore is the score one category received for one repository.
type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}
