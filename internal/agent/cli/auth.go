package cli

import (
	"context"
	"errors"

	engine "fieldvault/internal/agent/sync"
	"fieldvault/internal/agent/upload"
)

var errNotLoggedIn = errors.New("not logged in")

// Login prompts for operator credentials and validates them against the
// backend. On success the credential provider is handed to the sync engine,
// so queued work starts flowing on the next cycle.
func (a *App) Login(ctx context.Context) error {
	operator, err := GetSimpleText(a.reader, "Enter operator id", a.out)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	creds := upload.NewPasswordCredentials(a.client, operator, string(password))

	if _, err := creds.Token(ctx); err != nil {
		printlnFn("Login unsuccessful:", err.Error())
		return err
	}

	a.session.set(operator, creds)
	printlnFn("Logged in as", operator)

	a.engine.Trigger(engine.TriggerManual)
	return nil
}

// Logout forgets the operator's credentials. Local data is untouched; use
// clear for that.
func (a *App) Logout(_ context.Context) error {
	a.session.set("", nil)
	printlnFn("Logged out")
	return nil
}
