// ABOUTME: Static catalogue of Kotlin/Android development prompts.
// ABOUTME: Serves prompts/list and prompts/get with argument substitution.

package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates the named prompt is not in the catalogue.
var ErrNotFound = errors.New("prompt not found")

// ErrMissingArgument indicates a required prompt argument was not supplied.
var ErrMissingArgument = errors.New("missing required argument")

// Argument declares one prompt parameter.
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt is one catalogue entry.
type Prompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Arguments   []Argument `json:"arguments,omitempty"`

	render func(args map[string]string) string
}

// Message is a rendered prompt message.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content is the text content of a prompt message.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Catalog holds the fixed prompt set.
type Catalog struct {
	prompts map[string]*Prompt
}

// NewCatalog builds the default catalogue.
func NewCatalog() *Catalog {
	c := &Catalog{prompts: make(map[string]*Prompt)}
	for _, p := range defaultPrompts() {
		c.prompts[p.Name] = p
	}
	return c
}

// List returns the catalogue sorted by name.
func (c *Catalog) List() []*Prompt {
	out := make([]*Prompt, 0, len(c.prompts))
	for _, p := range c.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get renders the named prompt with the given arguments.
func (c *Catalog) Get(name string, args map[string]string) ([]Message, error) {
	p, ok := c.prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	for _, a := range p.Arguments {
		if a.Required && args[a.Name] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingArgument, a.Name)
		}
	}
	return []Message{{
		Role:    "user",
		Content: Content{Type: "text", Text: p.render(args)},
	}}, nil
}

func defaultPrompts() []*Prompt {
	return []*Prompt{
		{
			Name:        "generate_mvvm_viewmodel",
			Description: "Generate a complete MVVM ViewModel with state management",
			Arguments: []Argument{
				{Name: "feature_name", Description: "Name of the feature (e.g. 'UserProfile', 'ShoppingCart')", Required: true},
				{Name: "data_source", Description: "Data source type (network, database, both)"},
			},
			render: func(args map[string]string) string {
				feature := args["feature_name"]
				source := args["data_source"]
				if source == "" {
					source = "network"
				}
				var integration string
				switch source {
				case "database":
					integration = "Database operations with Room"
				case "both":
					integration = "Both network and database integration"
				default:
					integration = "Repository pattern with network calls"
				}
				return fmt.Sprintf(`Create a complete MVVM ViewModel for %s with the following requirements:

1. State management:
   - UI state data class with loading, success, and error states
   - StateFlow for reactive state updates

2. Data source integration:
   - %s
   - Proper data mapping and error handling

3. Modern Android patterns:
   - Hilt dependency injection
   - Coroutines for async operations
   - Lifecycle-aware components
   - Unit test setup

Generate the complete ViewModel implementation with all necessary dependencies.`, feature, integration)
			},
		},
		{
			Name:        "create_compose_screen",
			Description: "Generate a Jetpack Compose screen with navigation",
			Arguments: []Argument{
				{Name: "screen_name", Description: "Name of the screen (e.g. 'LoginScreen', 'ProfileScreen')", Required: true},
				{Name: "has_navigation", Description: "Include navigation setup (true/false)"},
			},
			render: func(args map[string]string) string {
				screen := args["screen_name"]
				var sb strings.Builder
				fmt.Fprintf(&sb, `Create a Jetpack Compose screen named %s with:

1. A stateless composable taking a UI state parameter and event callbacks
2. Preview composables for loading, content, and error states
3. Material 3 components and theming`, screen)
				if strings.EqualFold(args["has_navigation"], "true") {
					sb.WriteString("\n4. Navigation setup: a route constant, NavGraphBuilder extension, and type-safe arguments")
				}
				return sb.String()
			},
		},
		{
			Name:        "setup_room_database",
			Description: "Generate Room database setup with entities and DAOs",
			Arguments: []Argument{
				{Name: "database_name", Description: "Name of the database", Required: true},
				{Name: "entities", Description: "Comma-separated list of entity names", Required: true},
			},
			render: func(args map[string]string) string {
				entities := strings.Split(args["entities"], ",")
				for i := range entities {
					entities[i] = strings.TrimSpace(entities[i])
				}
				return fmt.Sprintf(`Set up a Room database named %s with the entities: %s.

For each entity generate:
1. An @Entity data class with a sensible primary key
2. A @Dao interface with insert, update, delete, and query methods returning Flow
3. Type converters where fields need them

Then generate the @Database class wiring all entities and DAOs together,
plus a Hilt module providing the database and each DAO.`, args["database_name"], strings.Join(entities, ", "))
			},
		},
	}
}
