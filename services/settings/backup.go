package settings

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"alertmap-go/errcode"
)

// BackupMeta describes the device that produced a backup.
type BackupMeta struct {
	FirmwareVersion string
	ChipID          string
	Time            time.Time
}

type backupDoc struct {
	FirmwareVersion string        `json:"fw_version"`
	ChipID          string        `json:"chip_id"`
	Time            string        `json:"time"`
	Settings        []backupEntry `json:"settings"`
}

type backupEntry struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Backup writes every effective value except the device-bound ones.
func (s *Store) Backup(w io.Writer, meta BackupMeta) error {
	snap := s.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		if !deviceBound(k) {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)

	doc := backupDoc{
		FirmwareVersion: meta.FirmwareVersion,
		ChipID:          meta.ChipID,
		Time:            meta.Time.UTC().Format(time.RFC3339),
	}
	for _, k := range keys {
		v := snap[Key(k)]
		t, ok := typeOfValue(v)
		if !ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return errcode.Wrap(errcode.Error, "settings.backup", err)
		}
		doc.Settings = append(doc.Settings, backupEntry{Key: k, Type: t.String(), Value: raw})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Restore applies a backup produced by Backup and persists each value. The
// device-bound keys are never restored, and entries whose type disagrees
// with the key's declared type are skipped. It returns the number of
// values applied.
func (s *Store) Restore(r io.Reader) (int, error) {
	var doc backupDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, errcode.Wrap(errcode.RestoreFailed, "settings.restore", err)
	}
	if doc.Settings == nil {
		return 0, &errcode.E{C: errcode.RestoreFailed, Op: "settings.restore", Msg: "no settings in backup"}
	}

	n := 0
	var firstErr error
	for _, e := range doc.Settings {
		key := Key(e.Key)
		if deviceBound(key) {
			continue
		}
		t, ok := ParseType(e.Type)
		if !ok {
			continue
		}
		if want, known := TypeOf(key); known && want != t {
			continue
		}
		var err error
		switch t {
		case TypeInt:
			var v int
			if err = json.Unmarshal(e.Value, &v); err == nil {
				err = s.SaveInt(key, v, true)
			}
		case TypeBool:
			var v bool
			if err = json.Unmarshal(e.Value, &v); err == nil {
				err = s.SaveBool(key, v, true)
			}
		case TypeFloat:
			var v float64
			if err = json.Unmarshal(e.Value, &v); err == nil {
				err = s.SaveFloat(key, v, true)
			}
		case TypeString:
			var v string
			if err = json.Unmarshal(e.Value, &v); err == nil {
				err = s.SaveString(key, v, true)
			}
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n++
	}
	if firstErr != nil {
		return n, errcode.Wrap(errcode.RestoreFailed, "settings.restore", firstErr)
	}
	s.log.Info().Int("count", n).Str("from_chip", doc.ChipID).Msg("settings restored")
	return n, nil
}
