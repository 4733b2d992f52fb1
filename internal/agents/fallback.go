package agents

import "github.com/sitesmith/sitesmith/internal/model"

// FallbackPlan returns a hand-written plan for the default requirement,
// used when the planning agent cannot produce a valid plan.
func FallbackPlan() model.Plan {
	return model.Plan{
		ProjectName:       "arxiv-cs-daily",
		ArchitectureNotes: "Static site: index page listing recent cs.AI papers, styled with a standalone stylesheet, refreshed by a small fetch script.",
		Tasks: []model.Task{
			{
				ID:          1,
				Title:       "Fetch recent cs.AI papers",
				Description: "Retrieve the latest cs.AI submissions and store them as a JSON data file for the site.",
				TargetPath:  "data/papers.json",
				Critical:    false,
			},
			{
				ID:           2,
				Title:        "Create site skeleton",
				Description:  "Create the index.html page with header, paper list container, and footer.",
				TargetPath:   "index.html",
				Dependencies: []int{1},
				Critical:     true,
			},
			{
				ID:           3,
				Title:        "Create stylesheet",
				Description:  "Create styles.css with layout and typography for the paper list.",
				TargetPath:   "styles.css",
				Dependencies: []int{2},
				Critical:     true,
			},
			{
				ID:           4,
				Title:        "Render paper list",
				Description:  "Create app.js that loads data/papers.json and renders paper cards into the list container.",
				TargetPath:   "app.js",
				Dependencies: []int{2},
				Critical:     true,
			},
			{
				ID:           5,
				Title:        "Add about page",
				Description:  "Create about.html describing the site and its data source.",
				TargetPath:   "about.html",
				Dependencies: []int{3},
				Critical:     false,
			},
			{
				ID:           6,
				Title:        "Wire pages together",
				Description:  "Link the stylesheet and script from index.html and cross-link the about page.",
				TargetPath:   "index.html",
				Dependencies: []int{3, 4, 5},
				Critical:     true,
			},
		},
	}
}
