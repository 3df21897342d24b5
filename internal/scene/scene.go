package scene

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"glow/internal/plugin"
)

// ErrNotFound indicates the named scene does not exist.
var ErrNotFound = errors.New("scene not found")

// ErrDuplicateName indicates the target scene name is already taken.
var ErrDuplicateName = errors.New("scene name already exists")

const maxNameLength = 100

// Scene is a named lighting preset.
type Scene struct {
	ID         int64
	Name       string
	Animation  string
	Params     plugin.Params
	Brightness float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("scene name must not be empty")
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("scene name exceeds %d characters", maxNameLength)
	}
	return trimmed, nil
}

func (s *Scene) validate() error {
	name, err := normalizeName(s.Name)
	if err != nil {
		return err
	}
	s.Name = name
	if strings.TrimSpace(s.Animation) == "" {
		return errors.New("scene animation must not be empty")
	}
	if s.Brightness < 0 || s.Brightness > 1 {
		return errors.New("scene brightness must be between 0 and 1")
	}
	return nil
}
