package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const timestampFormat = "2006-01-02_15-04-05"

// SaveInfo represents a saved bank file (for listing)
type SaveInfo struct {
	Filename  string
	Label     string // parsed from filename (empty if unlabeled)
	Timestamp time.Time
}

type savedBank struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

// SavesDir returns the default directory for bank saves
func SavesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-surface", "banks"), nil
}

// ListSaves returns the timestamped saves in dir, newest first
func ListSaves(dir string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, ok := parseSaveName(entry.Name())
		if !ok {
			continue
		}
		saves = append(saves, info)
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// parseSaveName splits 2024-01-15_14-30-00.json or
// 2024-01-15_14-30-00_label.json
func parseSaveName(name string) (SaveInfo, bool) {
	base := strings.TrimSuffix(name, ".json")
	if len(base) < len(timestampFormat) {
		return SaveInfo{}, false
	}
	ts, err := time.ParseInLocation(timestampFormat, base[:len(timestampFormat)], time.Local)
	if err != nil {
		return SaveInfo{}, false
	}
	label := ""
	if len(base) > len(timestampFormat)+1 && base[len(timestampFormat)] == '_' {
		label = base[len(timestampFormat)+1:]
	}
	return SaveInfo{Filename: name, Label: label, Timestamp: ts}, true
}

// Save writes a snapshot of b into dir and returns the file name
func Save(dir string, b *Bank, label string) (string, error) {
	return saveAt(dir, b, label, time.Now())
}

func saveAt(dir string, b *Bank, label string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(savedBank{Name: b.Name(), Tracks: b.Tracks()}, "", "  ")
	if err != nil {
		return "", err
	}

	filename := now.Format(timestampFormat)
	if label != "" {
		filename += "_" + sanitizeFilename(label)
	}
	filename += ".json"

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

// Load reads a save from dir (the most recent if filename is empty)
func Load(dir, filename string) (*Bank, error) {
	if filename == "" {
		saves, err := ListSaves(dir)
		if err != nil {
			return nil, err
		}
		if len(saves) == 0 {
			return nil, fmt.Errorf("no saves found in %s", dir)
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}

	var saved savedBank
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	b := &Bank{name: saved.Name, tracks: saved.Tracks}
	for i := range b.tracks {
		b.tracks[i].Volume = clampParam(b.tracks[i].Volume)
		b.tracks[i].Pan = clampParam(b.tracks[i].Pan)
	}
	return b, nil
}

// DeleteSave deletes a save file
func DeleteSave(dir, filename string) error {
	return os.Remove(filepath.Join(dir, filename))
}

// RenameSave changes the label of a save, keeping its timestamp
func RenameSave(dir, oldFilename, label string) (string, error) {
	info, ok := parseSaveName(oldFilename)
	if !ok {
		return "", fmt.Errorf("invalid save filename %q", oldFilename)
	}

	newFilename := info.Timestamp.Format(timestampFormat)
	if label != "" {
		newFilename += "_" + sanitizeFilename(label)
	}
	newFilename += ".json"

	if err := os.Rename(filepath.Join(dir, oldFilename), filepath.Join(dir, newFilename)); err != nil {
		return "", err
	}
	return newFilename, nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(name)
}
