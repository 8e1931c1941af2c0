// Package command provides the command registry, parser, and dispatcher that
// turn one input line into one text reply.
package command

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
	CategoryAdmin         = "admin"
)

// Handler identifiers mapping commands to dispatcher functions.
const (
	HandlerMove      = "move"
	HandlerLook      = "look"
	HandlerSay       = "say"
	HandlerInventory = "inventory"
	HandlerGet       = "get"
	HandlerDrop      = "drop"
	HandlerWho       = "who"
	HandlerHelp      = "help"
	HandlerQuit      = "quit"
	HandlerDig       = "dig"
	HandlerCreate    = "create"
	HandlerDesc      = "desc"
	HandlerDestroy   = "destroy"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Usage is the argument synopsis shown on a usage error; empty when the
	// command takes no arguments.
	Usage string
	// Category groups the command (movement, world, communication, system, admin).
	Category string
	// Handler names the dispatcher function that executes the command.
	Handler string
	// Admin restricts the command to players with the admin flag.
	Admin bool
	// MinArgs is the minimum number of argument tokens required.
	MinArgs int
}

// BuiltinCommands returns all built-in commands in help order.
func BuiltinCommands() []Command {
	return []Command{
		// Movement commands
		{Name: "north", Aliases: []string{"n"}, Help: "Move north", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south", Aliases: []string{"s"}, Help: "Move south", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "east", Aliases: []string{"e"}, Help: "Move east", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "west", Aliases: []string{"w"}, Help: "Move west", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "up", Aliases: []string{"u"}, Help: "Move up", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "down", Aliases: []string{"d"}, Help: "Move down", Category: CategoryMovement, Handler: HandlerMove},

		// World commands
		{Name: "look", Help: "Examine your surroundings", Category: CategoryWorld, Handler: HandlerLook},
		{Name: "inventory", Aliases: []string{"inv"}, Help: "Check your inventory", Category: CategoryWorld, Handler: HandlerInventory},
		{Name: "get", Help: "Pick up an item in the room", Usage: "get <item>", Category: CategoryWorld, Handler: HandlerGet, MinArgs: 1},
		{Name: "drop", Help: "Drop an item you are carrying", Usage: "drop <item>", Category: CategoryWorld, Handler: HandlerDrop, MinArgs: 1},

		// Communication commands
		{Name: "say", Help: "Speak to everyone online", Usage: "say <message>", Category: CategoryCommunication, Handler: HandlerSay},

		// System commands
		{Name: "who", Help: "List players online", Category: CategorySystem, Handler: HandlerWho},
		{Name: "help", Help: "Show this message", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Help: "Exit the game", Category: CategorySystem, Handler: HandlerQuit},

		// Admin commands
		{Name: "@dig", Help: "Create a new room with exits both ways", Usage: "@dig <direction> <room_name> <room_description>", Category: CategoryAdmin, Handler: HandlerDig, Admin: true, MinArgs: 3},
		{Name: "@create", Help: "Create an item in this room", Usage: "@create <item_name> <description>", Category: CategoryAdmin, Handler: HandlerCreate, Admin: true, MinArgs: 2},
		{Name: "@desc", Help: "Update this room's description", Usage: "@desc <new description>", Category: CategoryAdmin, Handler: HandlerDesc, Admin: true, MinArgs: 1},
		{Name: "@destroy", Help: "Delete an item in this room", Usage: "@destroy <item_name>", Category: CategoryAdmin, Handler: HandlerDestroy, Admin: true, MinArgs: 1},
	}
}

// IsMovementCommand reports whether the command name is a movement direction.
func IsMovementCommand(name string) bool {
	switch name {
	case "north", "south", "east", "west", "up", "down":
		return true
	default:
		return false
	}
}
