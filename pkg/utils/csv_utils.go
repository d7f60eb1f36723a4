package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCSV writes a header row followed by rows to dir/fileName and returns
// the full path. An existing file is replaced.
func WriteCSV(dir, fileName string, headers []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("write headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write rows: %w", err)
	}
	return path, file.Close()
}
