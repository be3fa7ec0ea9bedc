package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Capture(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Pending(ctx context.Context) error
	Sync(ctx context.Context) error
	Retry(ctx context.Context, id string) error
	Discard(ctx context.Context, id string) error
	Verify(ctx context.Context, id string) error
	Record(ctx context.Context, args []string) error
	Records(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Clear(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the agent.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands
//
//	Not logged in:
//	  - help           — show available commands
//	  - login          — authenticate as an operator
//	  - status         — backlog, quota and connectivity summary
//	  - exit | quit    — leave the program
//
//	Logged in, additionally:
//	  - capture <file> [-task t -job j -type t -stage s -lat x -lon y]
//	  - list           — all local evidence, grouped by sync status
//	  - show <id>      — one record in detail
//	  - pending        — records still waiting for delivery
//	  - sync           — request a drain cycle now
//	  - retry <id>     — put a failed record back in the queue
//	  - discard <id>   — delete a local record
//	  - verify <id>    — re-check a record's integrity hash
//	  - record <job|task> <id> <json> — note a job/task change, queued for sync
//	  - records [job|task] — list the cached jobs and tasks
//	  - clear          — wipe all local data
//	  - logout         — forget the operator's credentials
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("fv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: capture, (l)ist, show, pending, sync, retry, discard, verify, record, records, status, clear, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "capture":
			if len(args) == 0 {
				printlnFn("Usage: capture <file> [-task t -job j -type t -stage s -lat x -lon y]")
				continue
			}
			_ = a.Capture(ctx, args)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			if len(args) == 0 {
				printlnFn("Usage: show <id>")
				continue
			}
			_ = a.Show(ctx, args[0])

		case "pending":
			_ = a.Pending(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "retry":
			if len(args) == 0 {
				printlnFn("Usage: retry <id>")
				continue
			}
			_ = a.Retry(ctx, args[0])

		case "discard":
			if len(args) == 0 {
				printlnFn("Usage: discard <id>")
				continue
			}
			_ = a.Discard(ctx, args[0])

		case "verify":
			if len(args) == 0 {
				printlnFn("Usage: verify <id>")
				continue
			}
			_ = a.Verify(ctx, args[0])

		case "record":
			if len(args) < 3 {
				printlnFn("Usage: record <job|task> <id> <json>")
				continue
			}
			_ = a.Record(ctx, args)

		case "records":
			_ = a.Records(ctx, args)

		case "status":
			_ = a.Status(ctx)

		case "clear":
			_ = a.Clear(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
