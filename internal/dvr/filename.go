// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ManuGH/acblink/internal/fsutil"
)

const (
	defaultSlug     = "recording"
	maxSlugLen      = 50
	filenameTimeFmt = "20060102_150405"
	maxNameAttempts = 1000
)

var slugReplacer = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
	"à", "a",
	"á", "a",
	"â", "a",
	"è", "e",
	"é", "e",
	"ê", "e",
	"ì", "i",
	"í", "i",
	"ò", "o",
	"ó", "o",
	"ô", "o",
	"ù", "u",
	"ú", "u",
	"ç", "c",
	"ñ", "n",
	"&", " and ",
)

// slugify converts a stream name into a filesystem-safe token.
// Example: "ACB Media 1 (Main)" → "acb-media-1-main"
func slugify(name string) string {
	s := slugReplacer.Replace(strings.ToLower(name))

	var b strings.Builder
	lastWasDash := true // suppresses a leading dash
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			b.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// OutputFilename returns "<slug>_<YYYYMMDD_HHMMSS>.<ext>".
func OutputFilename(streamName string, at time.Time, format Format) string {
	return fmt.Sprintf("%s_%s.%s", slugify(streamName), at.Format(filenameTimeFmt), format.Extension())
}

// uniqueOutputPath picks a path under dir that neither exists on disk nor is
// claimed by taken. Collisions get a numeric suffix.
func uniqueOutputPath(dir, streamName string, at time.Time, format Format, taken func(string) bool) (string, error) {
	base := OutputFilename(streamName, at, format)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; i <= maxNameAttempts; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path, err := fsutil.ConfineRelPath(dir, name)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if taken != nil && taken(path) {
			continue
		}
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("no free output filename for %s", base)
}
