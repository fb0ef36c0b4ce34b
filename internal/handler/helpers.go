package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/app"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const loginFailedText = "Incorrect email or password"

var (
	errNotSignedIn = fmt.Errorf("not signed in, run `docqa login` first: %w", appErr.ErrUnauthenticated)
	errLoginFailed = errors.New("login failed")
)

// Describe turns err into the line shown to the user.
func Describe(err error) string {
	var apiErr *appErr.APIError
	var transportErr *appErr.TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errNotSignedIn):
		return err.Error()
	case errors.Is(err, errLoginFailed):
		return appErr.Message(err, loginFailedText)
	case appErr.IsUnauthenticated(err):
		return "Your session has expired. Run `docqa login` to sign in again."
	case errors.Is(err, appErr.ErrMalformedResponse):
		return "The server sent a response docqa does not understand: " + err.Error()
	case errors.As(err, &transportErr):
		return fmt.Sprintf("Could not reach the server: %v", transportErr.Err)
	case errors.As(err, &apiErr):
		return appErr.Message(err, fmt.Sprintf("Request failed with status %d", apiErr.Status))
	case errors.Is(err, appErr.ErrNoSelection):
		return "Select at least one document with --doc."
	case errors.Is(err, appErr.ErrCompareNeedsTwo):
		return "Select at least two documents to compare."
	default:
		return err.Error()
	}
}

// requireSession restores the session and loads the library.
func requireSession(ctx context.Context, d *Deps) error {
	if err := d.Coordinator.Start(ctx); err != nil {
		return err
	}
	if d.Coordinator.View() == app.ViewLogin {
		return errNotSignedIn
	}
	return nil
}

// openChat scopes a new chat view to docIDs.
func openChat(ctx context.Context, d *Deps, docIDs []string) error {
	if err := requireSession(ctx, d); err != nil {
		return err
	}
	if len(docIDs) == 0 {
		return appErr.ErrNoSelection
	}
	if err := d.Coordinator.Select(docIDs...); err != nil {
		return err
	}
	d.Coordinator.SwitchView(app.ViewChat)
	logutil.GetLogger(ctx).Debug("chat opened", zap.Strings("doc_ids", docIDs))
	return nil
}
