package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a random identifier of the form "<prefix>_<uuid>".
func GenerateID(prefix string) string {
	if prefix == "" {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String())
}
