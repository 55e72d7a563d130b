package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/thushan/tabkeeper/theme"
)

var (
	Name        = "tabkeeper"
	Authors     = "Thushan Fernando"
	Description = "Filtered library tabs that keep themselves current"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/thushan/tabkeeper"
	GithubHomeUri   = "https://github.com/thushan/tabkeeper"
	GithubLatestUri = "https://github.com/thushan/tabkeeper/releases/latest"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)
	padLatest := fmt.Sprintf("%*s", max(1, 22-len(Version)), "")

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔─────────────────────────────────────────────────────────╗
│  ╔════╗╔════╗╔═════╗                                    │
│  ║ ▓▓ ║║ ░░ ║║ ░░░ ║   ▀█▀ ▄▀█ █▄▄ █▄▀ █▀▀ █▀▀ █▀█ █▀▀ █▀█│
│  ╝    ╚╩════╩╩═════╩    █  █▀█ █▄█ █ █ ██▄ ██▄ █▀▀ ██▄ █▀▄│
│                                                         │` + "\n"))

	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(padLatest)
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash("  │\n"))
	b.WriteString(theme.ColourSplash("╚─────────────────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
