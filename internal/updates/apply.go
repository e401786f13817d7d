package updates

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// staged is one binary written next to its target with a .new suffix.
type staged struct {
	target string
	next   string
	backup string
	hadOld bool
}

// Apply installs the binaries contained in archive. targets[0] is the shell
// executable and must be present; the remaining targets (the bundled helpers)
// are replaced when the archive carries a file with the same name. An archive
// that is neither zip nor tar.gz is taken to be the shell binary itself.
// Every replaced file is kept next to it with an .old suffix, and a failure
// part-way restores all of them.
func Apply(archive string, targets ...string) error {
	if len(targets) == 0 {
		return errors.New("no install targets")
	}
	for _, dir := range targetDirs(targets) {
		if err := canWriteDir(dir); err != nil {
			return fmt.Errorf("install directory %s is not writable: %w", dir, err)
		}
	}

	files, err := stageBinaries(archive, targets)
	if err != nil {
		for _, t := range targets {
			_ = os.Remove(t + ".new")
		}
		return err
	}
	return swapAll(files)
}

func targetDirs(targets []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, t := range targets {
		d := filepath.Dir(t)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func swapAll(files []staged) error {
	for i := range files {
		if err := swapOne(&files[i]); err != nil {
			for j := i - 1; j >= 0; j-- {
				restore(files[j])
			}
			for _, f := range files[i:] {
				_ = os.Remove(f.next)
			}
			return err
		}
	}
	return nil
}

func swapOne(f *staged) error {
	_ = os.Remove(f.backup)
	if _, err := os.Stat(f.target); err == nil {
		if err := os.Rename(f.target, f.backup); err != nil {
			return fmt.Errorf("back up %s: %w", filepath.Base(f.target), err)
		}
		f.hadOld = true
	}
	if err := os.Rename(f.next, f.target); err != nil {
		if f.hadOld {
			_ = os.Rename(f.backup, f.target)
		}
		return fmt.Errorf("install %s: %w", filepath.Base(f.target), err)
	}
	return nil
}

func restore(f staged) {
	if f.hadOld {
		_ = os.Remove(f.target)
		_ = os.Rename(f.backup, f.target)
		return
	}
	_ = os.Remove(f.target)
}

func newStaged(target string) staged {
	return staged{target: target, next: target + ".new", backup: target + ".old"}
}

func stageBinaries(archive string, targets []string) ([]staged, error) {
	lower := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return stageFromZip(archive, targets)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return stageFromTarGz(archive, targets)
	default:
		f, err := os.Open(archive)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		s := newStaged(targets[0])
		if err := writeExecutable(s.next, f); err != nil {
			return nil, err
		}
		return []staged{s}, nil
	}
}

func stageFromZip(archive string, targets []string) ([]staged, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	byName := make(map[string]*zip.File)
	var fallback *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(filepath.Base(f.Name))
		if _, ok := byName[base]; !ok {
			byName[base] = f
		}
		if fallback == nil && isExecutableEntry(base, f.Mode()) {
			fallback = f
		}
	}

	var out []staged
	for i, t := range targets {
		entry := byName[strings.ToLower(filepath.Base(t))]
		if entry == nil && i == 0 && !helperNamed(fallback, targets[1:]) {
			entry = fallback
		}
		if entry == nil {
			if i == 0 {
				return nil, fmt.Errorf("no executable in %s (expected %s)", filepath.Base(archive), filepath.Base(t))
			}
			continue
		}
		s := newStaged(t)
		if err := writeZipEntry(entry, s.next); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// helperNamed reports whether f is one of the helper binaries, which must
// never be installed as the shell.
func helperNamed(f *zip.File, helpers []string) bool {
	if f == nil {
		return false
	}
	for _, h := range helpers {
		if strings.EqualFold(filepath.Base(f.Name), filepath.Base(h)) {
			return true
		}
	}
	return false
}

func writeZipEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeExecutable(dest, rc)
}

func stageFromTarGz(archive string, targets []string) ([]staged, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	wanted := make(map[string]int, len(targets))
	for i, t := range targets {
		wanted[strings.ToLower(filepath.Base(t))] = i
	}
	found := make([]*staged, len(targets))

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		i, ok := wanted[strings.ToLower(filepath.Base(hdr.Name))]
		if !ok || found[i] != nil {
			continue
		}
		s := newStaged(targets[i])
		if err := writeExecutable(s.next, tr); err != nil {
			return nil, err
		}
		found[i] = &s
	}

	if found[0] == nil {
		return nil, fmt.Errorf("no %s in %s", filepath.Base(targets[0]), filepath.Base(archive))
	}
	var out []staged
	for _, s := range found {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func isExecutableEntry(name string, mode os.FileMode) bool {
	return strings.EqualFold(filepath.Ext(name), ".exe") || mode&0o111 != 0
}

func writeExecutable(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

func canWriteDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("dir is empty")
	}
	f, err := os.CreateTemp(dir, ".syftbox-writetest-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
