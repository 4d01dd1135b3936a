package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User is the profile returned by the identity endpoint. The backend owns its
// shape; the typed fields are conveniences and Fields keeps every key as sent.
type User struct {
	ID           string         `json:"-"`
	Username     string         `json:"username,omitempty"`
	Email        string         `json:"email,omitempty"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	ProfileID    string         `json:"-"`
	ProfileImage string         `json:"profile_image,omitempty"`
	Fields       map[string]any `json:"-"`
}

// idKeys lists the keys accepted as the user identifier, in priority order.
var idKeys = []string{"pk", "id", "user_id", "userId"}

// UnmarshalJSON decodes the known fields and keeps the whole object in Fields.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}

	*u = User(p)
	u.Fields = fields
	for _, key := range idKeys {
		if v, ok := fields[key]; ok && v != nil {
			u.ID = fmt.Sprint(v)
			break
		}
	}
	if v, ok := fields["profile_id"]; ok && v != nil {
		u.ProfileID = fmt.Sprint(v)
	}
	return nil
}

// MarshalJSON writes Fields back out, overlaid with the typed fields.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Fields)+4)
	for k, v := range u.Fields {
		out[k] = v
	}
	if u.ID != "" && !hasIDKey(out) {
		out["id"] = u.ID
	}
	if u.Username != "" {
		out["username"] = u.Username
	}
	if u.Email != "" {
		out["email"] = u.Email
	}
	if u.FirstName != "" {
		out["first_name"] = u.FirstName
	}
	if u.LastName != "" {
		out["last_name"] = u.LastName
	}
	if u.ProfileImage != "" {
		out["profile_image"] = u.ProfileImage
	}
	return json.Marshal(out)
}

func hasIDKey(fields map[string]any) bool {
	for _, key := range idKeys {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

// DisplayName returns the best human readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
