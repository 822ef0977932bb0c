package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// FileInfo describes a corpus file found on disk.
type FileInfo struct {
	Filename string
	Size     int64
}

// corpusExtensions lists the file extensions accepted as plain-text corpora.
var corpusExtensions = []string{".txt", ".uc"}

// ValidateTextFile checks that filename is a non-empty UTF-8 text file with a known extension.
func ValidateTextFile(filename string) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}
	if fileInfo.Size() < 1 {
		return fmt.Errorf("file %s is empty", filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range corpusExtensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s (expected: %v)", filename, ext, corpusExtensions)
	}
	return nil
}

// LoadLines reads filename and splits its content on newlines.
// Every line, including a trailing empty one, becomes a training string.
func LoadLines(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", filename, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("corpus %s is not valid UTF-8", filename)
	}
	lines := strings.Split(string(data), "\n")
	log.Debugf("Loaded %d lines from %s", len(lines), filename)
	return lines, nil
}

// ListFiles returns the corpus files in dirPath sorted by name.
func ListFiles(dirPath string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for corpus files: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dirPath, entry.Name())
		if err := ValidateTextFile(path); err != nil {
			log.Debugf("Skipping %s: %v", path, err)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("Failed to stat corpus file %s: %v", path, err)
			continue
		}
		files = append(files, FileInfo{Filename: path, Size: info.Size()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})
	return files, nil
}

// LoadDir concatenates the lines of every corpus file in dirPath, in file name order.
func LoadDir(dirPath string) ([]string, error) {
	files, err := ListFiles(dirPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no corpus files found in %s", dirPath)
	}

	var lines []string
	for _, f := range files {
		fileLines, err := LoadLines(f.Filename)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fileLines...)
	}
	log.Debugf("Loaded %d corpus files (%d lines) from %s", len(files), len(lines), dirPath)
	return lines, nil
}

// Load reads path as a single corpus file or, if it is a directory, as a directory of them.
func Load(path string) ([]string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus path %s: %w", path, err)
	}
	if stat.IsDir() {
		return LoadDir(path)
	}
	return LoadLines(path)
}
