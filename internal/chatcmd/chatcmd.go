// Package chatcmd parses public chat input into either a slash command
// invocation or an ordinary broadcast chat line.
package chatcmd

import (
	"strings"
)

// Command is a parsed "/name arg1 arg2" chat command.
type Command struct {
	Name string
	Args []string
}

// Parse splits raw chat text into a Command if it starts with "/", or
// reports ok=false for anything else, which callers should treat as a
// plain broadcast chat message.
func Parse(raw string) (cmd Command, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// Handler processes one parsed Command for the issuing player,
// identified by userID, returning a line of text to send back to the
// issuer (empty if the command produces no direct reply).
type Handler func(userID int64, args []string) (reply string, err error)

// Table maps command names (without the leading "/") to handlers.
type Table struct {
	handlers map[string]Handler
}

// NewTable builds an empty command table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register binds name to handler. name is matched case-insensitively.
func (t *Table) Register(name string, h Handler) {
	t.handlers[strings.ToLower(name)] = h
}

// Dispatch looks up cmd.Name in the table and invokes its handler.
// ok reports whether a handler was found.
func (t *Table) Dispatch(userID int64, cmd Command) (reply string, ok bool, err error) {
	h, found := t.handlers[cmd.Name]
	if !found {
		return "", false, nil
	}
	reply, err = h(userID, cmd.Args)
	return reply, true, err
}
