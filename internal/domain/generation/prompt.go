package generation

import (
	"sort"
	"strings"
)

const promptHeader = `You are an experienced physiotherapist. Based on the visit notes below,
draft treatment recommendations for the patient. Be specific and practical:
suggest exercises with repetitions and frequency, manual therapy where
appropriate, and guidance for home care. Use plain language the patient can
follow. Do not diagnose beyond the information given.`

// BuildPrompt assembles the provider prompt from the visit narrative and
// caller-supplied overrides. Pure and deterministic: sections are included
// only when non-blank and overrides are listed in sorted key order, so
// identical input always yields an identical prompt.
func BuildPrompt(interview, description, priorRecommendations string, overrides map[string]string) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	writeSection := func(title, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		b.WriteString("\n\n== ")
		b.WriteString(title)
		b.WriteString(" ==\n")
		b.WriteString(text)
	}

	writeSection("Patient interview", interview)
	writeSection("Examination findings", description)
	writeSection("Previous recommendations", priorRecommendations)

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(overrides[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		b.WriteString("\n\n== Additional guidance ==")
		for _, k := range keys {
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(k))
			b.WriteString(": ")
			b.WriteString(strings.TrimSpace(overrides[k]))
		}
	}

	return b.String()
}
