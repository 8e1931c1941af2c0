package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/game/player"
	"github.com/cory-johannsen/mudcore/internal/game/session"
	"github.com/cory-johannsen/mudcore/internal/game/world"
)

// Player-facing replies shared by several commands.
const (
	MsgUnknown    = "Unknown command. Type 'help' for available commands.\n"
	MsgPermission = "You don't have permission to do that.\n"
	MsgNoExit     = "You can't go that way.\n"
	MsgSayWhat    = "Say what?\n"
	MsgGoodbye    = "Goodbye!\n"
	MsgNotFound   = "That doesn't exist.\n"
	MsgFailure    = "Something went wrong. Please try again.\n"
)

// Presence is the view of online sessions the dispatcher needs.
// *session.Registry satisfies it.
type Presence interface {
	OnlineInRoom(ctx context.Context, roomID string) ([]*session.Session, error)
	List() []*session.Session
}

// Publisher fans a message out to subscribed sessions, keyed by session id.
// *bus.Bus satisfies it.
type Publisher interface {
	Publish(text string) int
	PublishWhere(text string, accept func(id string) bool) int
}

// Recorder receives command counters. *observability.Metrics satisfies it.
type Recorder interface {
	CommandDispatched(command string)
	CommandFailed(class string)
}

type noopRecorder struct{}

func (noopRecorder) CommandDispatched(string) {}
func (noopRecorder) CommandFailed(string)     {}

// Result is the reply to one input line.
type Result struct {
	// Text is written to the issuing connection; empty for a blank line.
	Text string
	// Quit asks the caller to close the connection after writing Text.
	Quit bool
}

type invocation struct {
	cmd    *Command
	player *player.Player
	args   []string
}

type handlerFunc func(ctx context.Context, inv *invocation) (string, error)

// Dispatcher executes commands on behalf of connected players. It holds no
// per-player state and is safe for concurrent use.
type Dispatcher struct {
	commands *Registry
	world    *world.Service
	presence Presence
	bus      Publisher
	recorder Recorder
	logger   *zap.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher wires a Dispatcher.
//
// Precondition: commands, svc, presence, bus and logger must be non-nil.
// recorder may be nil.
// Postcondition: Every handler named by commands has an implementation, or
// an error is returned.
func NewDispatcher(commands *Registry, svc *world.Service, presence Presence, bus Publisher, recorder Recorder, logger *zap.Logger) (*Dispatcher, error) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	d := &Dispatcher{
		commands: commands,
		world:    svc,
		presence: presence,
		bus:      bus,
		recorder: recorder,
		logger:   logger,
	}
	d.handlers = map[string]handlerFunc{
		HandlerMove:      d.move,
		HandlerLook:      d.look,
		HandlerSay:       d.say,
		HandlerInventory: d.inventory,
		HandlerGet:       d.get,
		HandlerDrop:      d.drop,
		HandlerWho:       d.who,
		HandlerHelp:      d.help,
		HandlerDig:       d.dig,
		HandlerCreate:    d.create,
		HandlerDesc:      d.desc,
		HandlerDestroy:   d.destroy,
	}
	for _, cmd := range commands.Commands() {
		if cmd.Handler == HandlerQuit {
			continue
		}
		if _, ok := d.handlers[cmd.Handler]; !ok {
			return nil, fmt.Errorf("command %q: no handler %q", cmd.Name, cmd.Handler)
		}
	}
	return d, nil
}

// Dispatch parses and executes one input line for playerID.
//
// Postcondition: A blank line yields an empty Result. Every failure is
// converted to a player-facing Text.
func (d *Dispatcher) Dispatch(ctx context.Context, playerID, line string) Result {
	parsed := Parse(line)
	if parsed.Command == "" {
		return Result{}
	}

	cmd, ok := d.commands.Resolve(parsed.Command)
	if !ok {
		d.recorder.CommandDispatched("unknown")
		return Result{Text: MsgUnknown}
	}
	d.recorder.CommandDispatched(cmd.Name)
	if cmd.Handler == HandlerQuit {
		return Result{Text: MsgGoodbye, Quit: true}
	}

	// The stored record is authoritative for room and admin flag.
	p, err := d.world.Player(ctx, playerID)
	if err != nil {
		return Result{Text: d.fail(cmd, playerID, err)}
	}
	if cmd.Admin && !p.IsAdmin {
		return Result{Text: d.fail(cmd, playerID, ErrPermissionDenied)}
	}

	args := parsed.Args
	if cmd.Admin {
		args = SplitQuoted(parsed.RawArgs)
	}
	if len(args) < cmd.MinArgs {
		return Result{Text: d.fail(cmd, playerID, &UsageError{Command: cmd})}
	}

	text, err := d.handlers[cmd.Handler](ctx, &invocation{cmd: cmd, player: p, args: args})
	if err != nil {
		return Result{Text: d.fail(cmd, playerID, err)}
	}
	return Result{Text: text}
}

func (d *Dispatcher) fail(cmd *Command, playerID string, err error) string {
	var (
		usage    *UsageError
		notFound *NotFoundError
	)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		d.recorder.CommandFailed("permission")
		d.logger.Info("admin command refused", zap.String("player_id", playerID), zap.String("command", cmd.Name))
		return MsgPermission
	case errors.As(err, &usage):
		d.recorder.CommandFailed("usage")
		return "Usage: " + usage.Command.Usage + "\n"
	case errors.As(err, &notFound):
		d.recorder.CommandFailed("not_found")
		return notFound.Message
	case errors.Is(err, world.ErrNoExit):
		d.recorder.CommandFailed("no_exit")
		return MsgNoExit
	case errors.Is(err, world.ErrNotFound), errors.Is(err, world.ErrNotRoom):
		d.recorder.CommandFailed("not_found")
		d.logger.Warn("command referent missing",
			zap.String("player_id", playerID),
			zap.String("command", cmd.Name),
			zap.Error(err),
		)
		return MsgNotFound
	default:
		d.recorder.CommandFailed("storage")
		d.logger.Error("command failed",
			zap.String("player_id", playerID),
			zap.String("command", cmd.Name),
			zap.Error(err),
		)
		return MsgFailure
	}
}

// notifyRoom publishes text once on the bus, addressed to the sessions of the
// other online occupants of roomID. Failures are logged and do not fail the
// command.
func (d *Dispatcher) notifyRoom(ctx context.Context, roomID, exceptPlayerID, text string) {
	sessions, err := d.presence.OnlineInRoom(ctx, roomID)
	if err != nil {
		d.logger.Warn("room notice failed", zap.String("room", roomID), zap.Error(err))
		return
	}
	recipients := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if sess.PlayerID != exceptPlayerID {
			recipients[sess.ID] = true
		}
	}
	if len(recipients) == 0 {
		return
	}
	d.bus.PublishWhere(text, func(id string) bool { return recipients[id] })
}

func (d *Dispatcher) renderLook(ctx context.Context, p *player.Player) (string, error) {
	view, err := d.world.Look(ctx, p)
	if err != nil {
		return "", err
	}
	return RenderRoom(view), nil
}

func (d *Dispatcher) look(ctx context.Context, inv *invocation) (string, error) {
	return d.renderLook(ctx, inv.player)
}

func (d *Dispatcher) move(ctx context.Context, inv *invocation) (string, error) {
	dir, ok := world.ParseDirection(inv.cmd.Name)
	if !ok {
		return "", fmt.Errorf("command %q: %w", inv.cmd.Name, world.ErrInvalidDirection)
	}
	res, err := d.world.Move(ctx, inv.player, dir)
	if err != nil {
		return "", err
	}
	name := inv.player.Username
	d.notifyRoom(ctx, res.From, inv.player.ID, fmt.Sprintf("%s leaves %s.\n", name, dir))
	d.notifyRoom(ctx, res.To, inv.player.ID, fmt.Sprintf("%s arrives.\n", name))
	return d.renderLook(ctx, res.Player)
}

func (d *Dispatcher) say(_ context.Context, inv *invocation) (string, error) {
	if len(inv.args) == 0 {
		return MsgSayWhat, nil
	}
	msg := fmt.Sprintf("%s says: %s\n", inv.player.Username, strings.Join(inv.args, " "))
	d.bus.Publish(msg)
	return msg, nil
}

func (d *Dispatcher) inventory(ctx context.Context, inv *invocation) (string, error) {
	items, err := d.world.Inventory(ctx, inv.player.ID)
	if err != nil {
		return "", err
	}
	return RenderInventory(items), nil
}

func (d *Dispatcher) get(ctx context.Context, inv *invocation) (string, error) {
	item, err := d.world.Take(ctx, inv.player, strings.Join(inv.args, " "))
	if errors.Is(err, world.ErrNotFound) {
		return "", &NotFoundError{Message: "You don't see that here.\n", Err: err}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You pick up %s.\n", item.Name), nil
}

func (d *Dispatcher) drop(ctx context.Context, inv *invocation) (string, error) {
	item, err := d.world.Drop(ctx, inv.player, strings.Join(inv.args, " "))
	if errors.Is(err, world.ErrNotFound) {
		return "", &NotFoundError{Message: "You aren't carrying that.\n", Err: err}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You drop %s.\n", item.Name), nil
}

func (d *Dispatcher) who(_ context.Context, _ *invocation) (string, error) {
	sessions := d.presence.List()
	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Username
	}
	return RenderWho(names), nil
}

func (d *Dispatcher) help(_ context.Context, inv *invocation) (string, error) {
	return d.commands.HelpText(inv.player.IsAdmin), nil
}

func (d *Dispatcher) dig(ctx context.Context, inv *invocation) (string, error) {
	res, err := d.world.Dig(ctx, inv.player.RoomID, inv.args[0], inv.args[1], strings.Join(inv.args[2:], " "))
	if err != nil {
		return "", err
	}
	d.logger.Info("admin dug room",
		zap.String("player", inv.player.Username),
		zap.String("room", res.Room.ID),
		zap.String("direction", string(res.Direction)),
	)
	return fmt.Sprintf("Room created! Exit '%s' added.\n", res.Direction), nil
}

func (d *Dispatcher) create(ctx context.Context, inv *invocation) (string, error) {
	item, err := d.world.CreateItem(ctx, inv.player.RoomID, inv.args[0], strings.Join(inv.args[1:], " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created '%s'.\n", item.Name), nil
}

func (d *Dispatcher) desc(ctx context.Context, inv *invocation) (string, error) {
	if err := d.world.Describe(ctx, inv.player.RoomID, strings.Join(inv.args, " ")); err != nil {
		return "", err
	}
	return "Room description updated.\n", nil
}

func (d *Dispatcher) destroy(ctx context.Context, inv *invocation) (string, error) {
	item, err := d.world.Destroy(ctx, inv.player.RoomID, strings.Join(inv.args, " "))
	if errors.Is(err, world.ErrNotFound) {
		return "", &NotFoundError{Message: "You don't see that here.\n", Err: err}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Destroyed '%s'.\n", item.Name), nil
}
