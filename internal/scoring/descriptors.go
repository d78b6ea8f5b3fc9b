package scoring

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/descriptors.yaml
var descriptorsYAML []byte

var (
	descOnce sync.Once
	desc     map[string]map[int]string
	descErr  error
)

func loadDescriptors() (map[string]map[int]string, error) {
	descOnce.Do(func() {
		if err := yaml.Unmarshal(descriptorsYAML, &desc); err != nil {
			descErr = fmt.Errorf("parse descriptors: %w", err)
		}
	})
	return desc, descErr
}

// Descriptor returns the descriptor of the highest listed band <= band.
func Descriptor(criterion string, band float64) (string, bool) {
	all, err := loadDescriptors()
	if err != nil {
		return "", false
	}
	levels, ok := all[criterion]
	if !ok {
		return "", false
	}
	best := -1
	for lvl := range levels {
		if float64(lvl) <= band && lvl > best {
			best = lvl
		}
	}
	if best < 0 {
		return "", false
	}
	return levels[best], true
}

// RubricText renders the descriptors for criteria as plain text for a prompt.
func RubricText(criteria []string) string {
	all, err := loadDescriptors()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, c := range criteria {
		levels := all[c]
		if len(levels) == 0 {
			continue
		}
		keys := make([]int, 0, len(levels))
		for k := range levels {
			keys = append(keys, k)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(keys)))
		b.WriteString(c)
		b.WriteString(":\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  band %d: %s\n", k, levels[k])
		}
	}
	return b.String()
}
