package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the live view.
type Theme struct {
	Name    string
	Path    lipgloss.Color
	Vehicle lipgloss.Color
	Header  lipgloss.Color
	Graph   lipgloss.Color
	Muted   lipgloss.Color
	PathHex string
}

var (
	ThemeCyberpunk = Theme{
		Name:    "cyberpunk",
		Path:    lipgloss.Color("#ff00ff"),
		Vehicle: lipgloss.Color("#ffff00"),
		Header:  lipgloss.Color("#00ffff"),
		Graph:   lipgloss.Color("#00ff88"),
		Muted:   lipgloss.Color("#666666"),
		PathHex: "#ff00ff",
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Path:    lipgloss.Color("#00ff00"),
		Vehicle: lipgloss.Color("#88ff88"),
		Header:  lipgloss.Color("#00cc00"),
		Graph:   lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		PathHex: "#00ff00",
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Path:    lipgloss.Color("#00a8cc"),
		Vehicle: lipgloss.Color("#ffd700"),
		Header:  lipgloss.Color("#0077be"),
		Graph:   lipgloss.Color("#00ff88"),
		Muted:   lipgloss.Color("#4488aa"),
		PathHex: "#00a8cc",
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

// NextTheme cycles to the theme after t.
func NextTheme(t Theme) Theme {
	for i, candidate := range Themes {
		if candidate.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
