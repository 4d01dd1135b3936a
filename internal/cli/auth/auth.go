// Package auth keeps the session cookies of each server in the OS keychain so
// a login survives between CLI runs.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zalando/go-keyring"
)

const (
	service = "authsession-cli"
)

// ErrNotAuthenticated is returned when no cookies are stored for a server
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'authsession login' first")

// CookieStore defines the storage for per-server session cookies.
// This allows us to mock the keyring in tests
type CookieStore interface {
	SaveCookies(serverURL string, cookies []*http.Cookie) error
	LoadCookies(serverURL string) ([]*http.Cookie, error)
	DeleteCookies(serverURL string) error
}

// storedCookie is the keyring representation; the jar only hands back name
// and value for a URL.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// keyringStore implements CookieStore using the OS keyring
type keyringStore struct{}

// Default is the OS keyring backed store
var Default CookieStore = &keyringStore{}

// getKeyringKey returns a unique key for storing cookies per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("cookies-%s", serverURL)
}

// SaveCookies persists the cookies securely in the OS keychain/credential manager
func (k *keyringStore) SaveCookies(serverURL string, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := keyring.Set(service, getKeyringKey(serverURL), string(data)); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

// LoadCookies retrieves the cookies from the OS keychain/credential manager
func (k *keyringStore) LoadCookies(serverURL string) ([]*http.Cookie, error) {
	data, err := keyring.Get(service, getKeyringKey(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to parse stored cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	return cookies, nil
}

// DeleteCookies removes the cookies from the OS keychain/credential manager
func (k *keyringStore) DeleteCookies(serverURL string) error {
	if err := keyring.Delete(service, getKeyringKey(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}

// Restore loads the stored cookies for u into jar. Having nothing stored is
// not an error; the session simply starts absent.
func Restore(store CookieStore, jar http.CookieJar, u *url.URL) error {
	cookies, err := store.LoadCookies(u.String())
	if errors.Is(err, ErrNotAuthenticated) {
		return nil
	}
	if err != nil {
		return err
	}
	jar.SetCookies(u, cookies)
	return nil
}

// Persist writes the cookies jar holds for u back to store. An empty jar
// deletes the entry.
func Persist(store CookieStore, jar http.CookieJar, u *url.URL) error {
	cookies := jar.Cookies(u)
	if len(cookies) == 0 {
		return store.DeleteCookies(u.String())
	}
	return store.SaveCookies(u.String(), cookies)
}
