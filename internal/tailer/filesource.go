// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package tailer

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileSource reads a single, non-rotating log file (the `log[...]` family).
type FileSource struct {
	Fs afero.Fs
}

// NewFileSource returns a FileSource backed by fs.
func NewFileSource(fs afero.Fs) *FileSource {
	return &FileSource{Fs: fs}
}

// Read returns the next record at or after offset. It yields exactly one
// complete line per call, or an EOF record (Value == nil) once no complete
// line remains — a trailing, not-yet-newline-terminated line is left
// unconsumed so a concurrent writer's partial line is never torn.
//
// On truncation (the file is now shorter than offset) it resets to the
// file's current end-of-file size rather than rereading from zero, so the
// offset the registry tracks drops to that size and whatever the truncated
// file already holds is not read.
func (s *FileSource) Read(path string, offset int64) (Record, error) {
	info, err := s.Fs.Stat(path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "tailer: stat %q", path)
	}
	size := info.Size()
	if offset > size {
		return Record{Offset: size, EOF: true}, nil
	}
	if offset == size {
		return Record{Offset: offset, EOF: true}, nil
	}

	f, err := s.Fs.Open(path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "tailer: open %q", path)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Record{}, errors.Wrapf(err, "tailer: seek %q", path)
	}

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return Record{Offset: offset, EOF: true}, nil
		}
		if err == io.EOF {
			// Partial trailing line: don't consume it yet.
			return Record{Offset: offset, EOF: true}, nil
		}
		return Record{}, errors.Wrapf(err, "tailer: read %q", path)
	}

	value := strings.TrimRight(line, "\r\n")
	return Record{
		Value:  &value,
		Offset: offset + int64(len(line)),
	}, nil
}

// RotatingSource reads a rotating file set (the `logrt[...]` family). path
// is a glob pattern; the "current" file is the most-recently-modified match.
type RotatingSource struct {
	Fs afero.Fs
}

// NewRotatingSource returns a RotatingSource backed by fs.
func NewRotatingSource(fs afero.Fs) *RotatingSource {
	return &RotatingSource{Fs: fs}
}

// CurrentFile returns the newest file matching pattern, or an error if none
// match.
func (s *RotatingSource) CurrentFile(pattern string) (string, int64, error) {
	matches, err := afero.Glob(s.Fs, pattern)
	if err != nil {
		return "", 0, errors.Wrapf(err, "tailer: glob %q", pattern)
	}
	if len(matches) == 0 {
		return "", 0, errors.Errorf("tailer: no files match %q", pattern)
	}
	type candidate struct {
		path  string
		mtime int64
	}
	cands := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := s.Fs.Stat(m)
		if err != nil {
			continue
		}
		cands = append(cands, candidate{path: m, mtime: info.ModTime().Unix()})
	}
	if len(cands) == 0 {
		return "", 0, errors.Errorf("tailer: no readable files match %q", pattern)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].mtime != cands[j].mtime {
			return cands[i].mtime > cands[j].mtime
		}
		return cands[i].path > cands[j].path
	})
	return cands[0].path, cands[0].mtime, nil
}
