package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const DefaultProfileName = "default"

var profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Profile scopes durable client state, the way a browser profile scopes local storage.
type Profile struct {
	Name         string
	APIBaseURL   string
	StoreBackend string
	CreatedAt    time.Time
}

func (p Profile) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	if !profileNamePattern.MatchString(name) {
		return fmt.Errorf("invalid profile name %q", p.Name)
	}

	return nil
}
