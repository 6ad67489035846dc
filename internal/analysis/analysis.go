// Package analysis triages abuse reports. It maps the free-text reason a
// client sends to a category and weighs how urgently it should be reviewed.
package analysis

import (
	"strings"

	"strangerly/backend/internal/config"
)

// Categorize returns the most serious category whose keywords appear in reason.
// Empty or unrecognized reasons are config.CategoryOther.
func Categorize(reason string) string {
	r := strings.ToLower(reason)
	if strings.TrimSpace(r) == "" {
		return config.CategoryOther
	}
	for _, category := range config.ReportCategoryOrder {
		for _, kw := range config.ReportKeywords[category] {
			if strings.Contains(r, kw) {
				return category
			}
		}
	}
	return config.CategoryOther
}

// GetWeight returns the severity for a category.
// It returns 0 if the category is not recognized.
func GetWeight(category string) int {
	return config.ReportCategoryWeights[category]
}
