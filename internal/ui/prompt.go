package ui

import (
	"fmt"
	"strings"

	"ompkg/pkg/manager"

	"github.com/manifoldco/promptui"
)

// Confirm prompts the user for yes/no confirmation.
func Confirm(prompt string, defaultYes bool) (bool, error) {
	label := prompt
	if defaultYes {
		label += " [Y/n]"
	} else {
		label += " [y/N]"
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   "",
	}

	if defaultYes {
		p.Default = "y"
	}

	result, err := p.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return defaultYes, nil // Return default on error
	}

	result = strings.ToLower(strings.TrimSpace(result))
	if result == "" {
		return defaultYes, nil
	}

	return result == "y" || result == "yes", nil
}

// SelectEntry prompts the user to select a package from a list.
func SelectEntry(entries []manager.Entry, prompt string) (*manager.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no packages to select from")
	}

	if len(entries) == 1 {
		return &entries[0], nil
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .Repo | cyan }} {{ .Version | green }} [{{ .Target | magenta }}]",
		Inactive: "  {{ .Repo }} {{ .Version | faint }} [{{ .Target | faint }}]",
		Selected: "✓ {{ .Repo | cyan }} {{ .Version | green }}",
		Details: `
--------- Package ----------
{{ "Repository:" | faint }}	{{ .Repo }}
{{ "Constraint:" | faint }}	{{ .Constraint }}
{{ "Installed:" | faint }}	{{ .Version }}
{{ "Files:" | faint }}	{{ .Files }}`,
	}

	searcher := func(input string, index int) bool {
		repo := strings.ToLower(entries[index].Repo)
		return strings.Contains(repo, strings.ToLower(input))
	}

	p := promptui.Select{
		Label:     prompt,
		Items:     entries,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	index, _, err := p.Run()
	if err != nil {
		return nil, err
	}

	return &entries[index], nil
}

// SelectMultiple prompts the user to select multiple items.
// Note: promptui doesn't support multi-select out of the box,
// so we implement a simple version.
func SelectMultiple(items []string, prompt string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to select from")
	}

	fmt.Println(prompt)
	fmt.Println("Enter numbers separated by spaces (e.g., '1 3 5'), or 'all' for all items:")
	fmt.Println()

	for i, item := range items {
		fmt.Printf("  %d. %s\n", i+1, item)
	}

	fmt.Println()

	p := promptui.Prompt{
		Label: "Selection",
	}

	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	return parseSelection(result, items), nil
}

// parseSelection maps "1 3" or "all" to the chosen items.
func parseSelection(input string, items []string) []string {
	input = strings.TrimSpace(input)
	if strings.ToLower(input) == "all" {
		return items
	}

	var selected []string
	seen := make(map[int]bool)
	for _, part := range strings.Fields(input) {
		var idx int
		if _, err := fmt.Sscanf(part, "%d", &idx); err == nil {
			if idx >= 1 && idx <= len(items) && !seen[idx] {
				seen[idx] = true
				selected = append(selected, items[idx-1])
			}
		}
	}

	return selected
}
