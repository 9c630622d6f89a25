package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns an identifier of the form PREFIX-<base36 millis>-<4 random chars>.
func NewID(prefix string, now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	rnd := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return prefix + "-" + ts + "-" + rnd
}
