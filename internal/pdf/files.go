package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Collect resolves PDF arguments into file paths. Relative paths are tried
// as given and then under root; directories contribute every .pdf file
// beneath them. The result is sorted and free of duplicates.
func Collect(root string, args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		path, err := resolve(root, arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("checking PDF: %w", err)
		}
		if !info.IsDir() {
			out = append(out, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".pdf") {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func resolve(root, arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("no PDF path specified")
	}
	if _, err := os.Stat(arg); err == nil || filepath.IsAbs(arg) || root == "" {
		if err != nil {
			return "", fmt.Errorf("PDF not found: %s", arg)
		}
		return arg, nil
	}
	full := filepath.Join(root, arg)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("PDF not found: %s (also tried %s)", arg, full)
		}
		return "", fmt.Errorf("checking PDF: %w", err)
	}
	return full, nil
}
