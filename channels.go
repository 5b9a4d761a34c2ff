package dispatch

import (
	"fmt"
	"sync/atomic"
	"time"
)

// PreAction is a typed channel raised before a player action is applied.
// Subscribers receive an *ActionEvent and may veto the action with Cancel.
type PreAction uint8

const (
	// Command - a chat command was entered
	Command PreAction = iota
	// Chat - a chat message is about to be broadcast
	Chat
	// Interact - the player used an entity or block
	Interact
	// Build - a block is about to be placed or broken
	Build
	// Attack - the player hit another entity
	Attack
	// Craft - an item is about to be crafted
	Craft
)

var actionNames = [...]string{"command", "chat", "interact", "build", "attack", "craft"}

func (a PreAction) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("pre_action(%d)", a)
}

// PostAction is a typed channel raised after a player action was applied.
// It shares its members with PreAction.
type PostAction uint8

const (
	// AfterCommand - a chat command was executed
	AfterCommand PostAction = iota
	// AfterChat - a chat message was broadcast
	AfterChat
	// AfterInteract - an interaction completed
	AfterInteract
	// AfterBuild - a block was placed or broken
	AfterBuild
	// AfterAttack - an attack was resolved
	AfterAttack
	// AfterCraft - an item was crafted
	AfterCraft
)

func (a PostAction) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("post_action(%d)", a)
}

// Post returns the PostAction matching a.
func (a PreAction) Post() PostAction { return PostAction(a) }

// PlayerEvent is a typed channel for player lifecycle transitions.
type PlayerEvent uint8

const (
	// PlayerConnecting - a connection was accepted, the player is not yet in the world
	PlayerConnecting PlayerEvent = iota
	// PlayerJoined - the player finished logging in
	PlayerJoined
	// PlayerSpawned - the player entered the world
	PlayerSpawned
	// PlayerDied - the player died
	PlayerDied
	// PlayerRespawned - the player respawned after death
	PlayerRespawned
	// PlayerLeft - the player disconnected
	PlayerLeft
)

var playerNames = [...]string{"connecting", "joined", "spawned", "died", "respawned", "left"}

func (e PlayerEvent) String() string {
	if int(e) < len(playerNames) {
		return playerNames[e]
	}
	return fmt.Sprintf("player(%d)", e)
}

// ServerEvent is a typed channel for server lifecycle transitions.
type ServerEvent uint8

const (
	// ServerStarting - configuration is loaded, the world is not yet available
	ServerStarting ServerEvent = iota
	// ServerStarted - the server accepts connections
	ServerStarted
	// ServerTick - one simulation step completed
	ServerTick
	// ServerSaving - world state is about to be persisted
	ServerSaving
	// ServerStopping - shutdown began, players are still connected
	ServerStopping
	// ServerStopped - shutdown finished
	ServerStopped
)

var serverNames = [...]string{"starting", "started", "tick", "saving", "stopping", "stopped"}

func (e ServerEvent) String() string {
	if int(e) < len(serverNames) {
		return serverNames[e]
	}
	return fmt.Sprintf("server(%d)", e)
}

// ActionEvent is the payload of PreAction and PostAction channels.
type ActionEvent struct {
	// Player is the ID of the acting player.
	Player string
	// Name is the command, item or block the action refers to.
	Name string
	// Args holds action specific parameters such as command arguments.
	Args []string
	// At is when the action was requested.
	At time.Time

	cancelled atomic.Bool
}

// Cancel vetoes the action. Only meaningful for PreAction subscribers; the producer
// checks Cancelled after the emission returns.
func (e *ActionEvent) Cancel() { e.cancelled.Store(true) }

// Cancelled reports whether any subscriber called Cancel.
func (e *ActionEvent) Cancelled() bool { return e.cancelled.Load() }

// PlayerInfo is the payload of PlayerEvent channels.
type PlayerInfo struct {
	ID      string
	Name    string
	Address string
	// Reason is set for PlayerDied and PlayerLeft.
	Reason string
	At     time.Time
}

// ServerInfo is the payload of ServerEvent channels.
type ServerInfo struct {
	Name    string
	Players int
	// Tick is the simulation step counter. It is set for every event.
	Tick   uint64
	Uptime time.Duration
}
