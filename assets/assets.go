// Package assets embeds seed data shipped with the binary.
package assets

import (
	"embed"
	"encoding/json"
	"fmt"

	"plata/internal/core"
)

//go:embed tips.json
var tipsFS embed.FS

// Tips decodes the bundled financial tip corpus.
func Tips() ([]core.Tip, error) {
	raw, err := tipsFS.ReadFile("tips.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded tips: %w", err)
	}
	var tips []core.Tip
	if err := json.Unmarshal(raw, &tips); err != nil {
		return nil, fmt.Errorf("decode embedded tips: %w", err)
	}
	return tips, nil
}
