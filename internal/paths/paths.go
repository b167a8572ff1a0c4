package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ConfigFileName is the per-directory config file looked up by every command.
const ConfigFileName = "karaluxer.yaml"

// GlobalDir returns the user-level karaluxer directory (~/.karaluxer).
// It creates the directory if it does not exist.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	dir := filepath.Join(home, ".karaluxer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create global dir: %w", err)
	}
	return dir, nil
}

// GlobalLogsDir returns the global logs directory (~/.karaluxer/logs).
// It creates the directory if it does not exist.
func GlobalLogsDir() (string, error) {
	global, err := GlobalDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(global, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create global logs dir: %w", err)
	}
	return dir, nil
}

// GlobalCacheDir returns the download cache directory (~/.karaluxer/cache).
// It creates the directory if it does not exist.
func GlobalCacheDir() (string, error) {
	global, err := GlobalDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(global, "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create global cache dir: %w", err)
	}
	return dir, nil
}

// GlobalConfigFile returns ~/.karaluxer/config.yaml. The file may not exist.
func GlobalConfigFile() (string, error) {
	global, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(global, "config.yaml"), nil
}

// ResolveConfig picks the config file to load: the explicit flag value, then
// karaluxer.yaml in dir, then the global config. An empty result means no
// file was found and defaults apply.
func ResolveConfig(flag, dir string) (string, error) {
	if strings.TrimSpace(flag) != "" {
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return abs, nil
	}

	local := filepath.Join(dir, ConfigFileName)
	ok, err := FileExists(local)
	if err != nil {
		return "", err
	}
	if ok {
		return local, nil
	}

	global, err := GlobalConfigFile()
	if err != nil {
		return "", err
	}
	ok, err = FileExists(global)
	if err != nil {
		return "", err
	}
	if ok {
		return global, nil
	}
	return "", nil
}

// SongBaseName returns "<artist> - <title>" made safe for use as a file or
// directory name.
func SongBaseName(artist, title string) string {
	artist = SafeName(artist)
	title = SafeName(title)
	switch {
	case artist == "" && title == "":
		return "song"
	case artist == "":
		return title
	case title == "":
		return artist
	}
	return artist + " - " + title
}

// SongDir returns the folder a song is written to under outputDir.
func SongDir(outputDir, artist, title string) string {
	return filepath.Join(outputDir, SongBaseName(artist, title))
}

// SafeName replaces characters that are not allowed in file names on common
// file systems and trims leading and trailing dots and spaces.
func SafeName(value string) string {
	var builder strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			if !lastUnderscore {
				builder.WriteByte('_')
				lastUnderscore = true
			}
		default:
			builder.WriteRune(r)
			lastUnderscore = false
		}
	}
	return strings.Trim(builder.String(), " .")
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
