// Package prompt builds the generation instruction for one keyword/category pair.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/querygen/internal/domain"
)

// Build returns the instruction for keyword and category.
// The output depends only on its arguments.
func Build(keyword string, category domain.Category) string {
	var b strings.Builder
	b.WriteString("You are generating realistic YouTube search queries.\n")
	fmt.Fprintf(&b, "Keyword: %s\n", keyword)
	fmt.Fprintf(&b, "Category: %s\n", category)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Produce EXACTLY %d queries users might type on YouTube search.\n", domain.QueriesPerCategory)
	b.WriteString("- Keep queries natural (search-style phrases), short, and varied.\n")
	b.WriteString("- Prefer English queries.\n")
	b.WriteString("Output format: Return ONLY valid JSON with double quotes, no extra text.\n")
	b.WriteString("{\n")
	b.WriteString("  \"keyword\": \"<keyword>\",\n")
	b.WriteString("  \"category\": \"<category>\",\n")
	fmt.Fprintf(&b, "  \"queries\": [\"...%d items...\"]\n", domain.QueriesPerCategory)
	b.WriteString("}")
	return b.String()
}
