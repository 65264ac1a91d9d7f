package theme

import (
	"fmt"
)

// Banner returns the startup banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  ＠ ─── " + magenta + "THREADGENIUS" + reset + " ─── ＠\n" +
		cyan + "   ┌───────────────────────────┐\n" + reset +
		cyan + "   │  draft → humanize → rank  │\n" + reset +
		cyan + "   └───────────────────────────┘\n" + reset +
		yellow + "     ────────────────────────────\n" + reset +
		"   会話が生まれる投稿を、ペルソナの声で。\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
