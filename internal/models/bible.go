package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBibleReference is returned when a passage cannot be parsed
var ErrInvalidBibleReference = errors.New("invalid bible reference")

// BibleReference identifies a passage: book, chapter and an optional verse range.
// Zero verses mean the whole chapter.
type BibleReference struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	VerseStart int    `json:"verse_start,omitempty"`
	VerseEnd   int    `json:"verse_end,omitempty"`
}

func (r BibleReference) String() string {
	switch {
	case r.VerseStart == 0:
		return fmt.Sprintf("%s %d", r.Book, r.Chapter)
	case r.VerseEnd == 0 || r.VerseEnd == r.VerseStart:
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.VerseStart)
	default:
		return fmt.Sprintf("%s %d:%d-%d", r.Book, r.Chapter, r.VerseStart, r.VerseEnd)
	}
}

// ParseBibleReference parses "<book> <chapter>[:<verse>[-<verse>]]", e.g. "1 João 3:16-18"
func ParseBibleReference(s string) (BibleReference, error) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, " ")
	if idx <= 0 {
		return BibleReference{}, fmt.Errorf("%w: %q", ErrInvalidBibleReference, s)
	}

	ref := BibleReference{Book: strings.TrimSpace(s[:idx])}
	chapterPart, versePart, hasVerses := strings.Cut(s[idx+1:], ":")

	chapter, err := strconv.Atoi(chapterPart)
	if err != nil || chapter < 1 {
		return BibleReference{}, fmt.Errorf("%w: bad chapter in %q", ErrInvalidBibleReference, s)
	}
	ref.Chapter = chapter

	if !hasVerses {
		return ref, nil
	}

	startPart, endPart, hasRange := strings.Cut(versePart, "-")
	start, err := strconv.Atoi(startPart)
	if err != nil || start < 1 {
		return BibleReference{}, fmt.Errorf("%w: bad verse in %q", ErrInvalidBibleReference, s)
	}
	ref.VerseStart, ref.VerseEnd = start, start

	if hasRange {
		end, err := strconv.Atoi(endPart)
		if err != nil || end < start {
			return BibleReference{}, fmt.Errorf("%w: bad verse range in %q", ErrInvalidBibleReference, s)
		}
		ref.VerseEnd = end
	}
	return ref, nil
}
