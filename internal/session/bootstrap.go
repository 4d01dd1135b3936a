package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// FetchUser asks the identity endpoint who the ambient credentials belong to.
func FetchUser(ctx context.Context, client *http.Client, userInfoURL string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError("user info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Op: "user info", Status: resp.StatusCode, Err: ErrUnauthenticated}
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &user, nil
}

// Bootstrap seeds store from the identity endpoint. Failure leaves the store
// absent and is only logged: an unauthenticated first load is normal, so no
// redirect is ever triggered from here.
func Bootstrap(ctx context.Context, client *http.Client, userInfoURL string, store *Store, logger zerolog.Logger) *User {
	user, err := FetchUser(ctx, client, userInfoURL)
	if err != nil {
		logger.Debug().Err(err).Msg("No session at startup")
		store.Set(nil)
		return nil
	}

	logger.Debug().Str("user_id", user.ID).Str("username", user.Username).Msg("Session restored")
	store.Set(user)
	return user
}
