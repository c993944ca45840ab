package settings

import (
	"strings"

	"github.com/google/uuid"
)

// EnsureChipID returns the device id reported to the server. A hardware id
// always wins; otherwise a random id is generated once and persisted.
func (s *Store) EnsureChipID(hardware string) (string, error) {
	if hardware != "" {
		if s.GetString(ChipID) != hardware {
			return hardware, s.SaveString(ChipID, hardware, true)
		}
		return hardware, nil
	}
	if id := s.GetString(ChipID); id != "" {
		return id, nil
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	s.log.Info().Str("chip_id", id).Msg("generated device id")
	return id, s.SaveString(ChipID, id, true)
}
