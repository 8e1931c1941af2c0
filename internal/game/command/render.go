package command

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/mudcore/internal/game/world"
)

// RenderRoom formats a room view: name, description, contents, the other
// stored occupants, then exits.
func RenderRoom(view *world.RoomView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", view.Room.Name, view.Room.Description)

	if len(view.Contents) > 0 {
		b.WriteString("You see:\n")
		for _, o := range view.Contents {
			fmt.Fprintf(&b, "  - %s\n", o.Name)
		}
	}

	if len(view.Occupants) > 0 {
		b.WriteString("\nPlayers here:\n")
		for _, p := range view.Occupants {
			fmt.Fprintf(&b, "  - %s\n", p.Username)
		}
	}

	if len(view.Exits) == 0 {
		b.WriteString("Exits: None\n\n")
		return b.String()
	}
	dirs := make([]string, len(view.Exits))
	for i, e := range view.Exits {
		dirs[i] = string(e.Direction)
	}
	fmt.Fprintf(&b, "Exits: %s\n\n", strings.Join(dirs, ", "))
	return b.String()
}

// RenderInventory formats the objects a player holds.
func RenderInventory(items []*world.Object) string {
	if len(items) == 0 {
		return "Your inventory is empty.\n"
	}
	var b strings.Builder
	b.WriteString("Inventory:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "  - %s: %s\n", it.Name, it.Description)
	}
	return b.String()
}

// RenderWho formats the list of online usernames.
func RenderWho(usernames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Players online (%d):\n", len(usernames))
	for _, u := range usernames {
		fmt.Fprintf(&b, "  - %s\n", u)
	}
	return b.String()
}
