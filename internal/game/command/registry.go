package command

import (
	"fmt"
	"strings"
)

// Registry maps command names and aliases to Command definitions.
type Registry struct {
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
	order    []*Command          // definition order, for help
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if _, exists := r.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if _, exists := r.aliases[cmd.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", cmd.Name)
		}
		if cmd.MinArgs > 0 && cmd.Usage == "" {
			return nil, fmt.Errorf("command %q takes arguments but has no usage", cmd.Name)
		}
		r.commands[cmd.Name] = cmd
		r.order = append(r.order, cmd)

		for _, alias := range cmd.Aliases {
			if _, exists := r.commands[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, cmd.Name)
			}
			r.aliases[alias] = cmd.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias, case-insensitively.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	input = strings.ToLower(input)
	if cmd, ok := r.commands[input]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Commands returns all registered commands in definition order.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.order...)
}

// CommandsByCategory returns commands grouped by category.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.order {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}

// HelpText renders the command list. Admin commands are listed only when
// admin is true.
func (r *Registry) HelpText(admin bool) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")

	var dirs []string
	for _, cmd := range r.order {
		if cmd.Category == CategoryMovement {
			name := cmd.Name
			if len(cmd.Aliases) > 0 {
				name += "/" + cmd.Aliases[0]
			}
			dirs = append(dirs, name)
		}
	}
	if len(dirs) > 0 {
		fmt.Fprintf(&b, "  - %s: Move through an exit\n", strings.Join(dirs, ", "))
	}

	var adminCmds []*Command
	for _, cmd := range r.order {
		switch {
		case cmd.Category == CategoryMovement:
		case cmd.Admin:
			adminCmds = append(adminCmds, cmd)
		default:
			writeHelpLine(&b, cmd)
		}
	}

	if admin && len(adminCmds) > 0 {
		b.WriteString("\nAdmin commands:\n")
		for _, cmd := range adminCmds {
			writeHelpLine(&b, cmd)
		}
	}
	return b.String()
}

func writeHelpLine(b *strings.Builder, cmd *Command) {
	label := cmd.Usage
	if label == "" {
		label = cmd.Name
		if len(cmd.Aliases) > 0 {
			label += "/" + strings.Join(cmd.Aliases, "/")
		}
	}
	fmt.Fprintf(b, "  - %s: %s\n", label, cmd.Help)
}
