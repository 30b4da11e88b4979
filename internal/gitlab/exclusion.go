package gitlab

import (
	"strings"

	"github.com/samber/lo"
)

// Exclusion skips every namespace that contains one of its substrings. Matching is case
// sensitive and not aligned to path segments: "hengshan" also excludes "org/xhengshanx".
type Exclusion []string

func (e Exclusion) Excludes(namespacePath string) bool {
	return lo.SomeBy(e, func(token string) bool {
		return token != "" && strings.Contains(namespacePath, token)
	})
}
